package portfolio

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/manumarlats408/stocks/internal/errors"
	"github.com/manumarlats408/stocks/internal/logging"
	"github.com/manumarlats408/stocks/internal/models"
	"github.com/manumarlats408/stocks/internal/quotes"
	"github.com/manumarlats408/stocks/internal/store"
)

// Backend is the persistence surface the controller needs. The concrete
// implementation is internal/backend.Client; tests substitute fakes.
type Backend interface {
	CurrentUser() (*models.User, error)
	OnAuthChange(fn func(*models.User))

	ListHoldings(ctx context.Context) ([]models.Holding, error)
	InsertHolding(ctx context.Context, h models.Holding) (*models.Holding, error)
	UpdateHolding(ctx context.Context, id string, h models.Holding) (*models.Holding, error)
	DeleteHolding(ctx context.Context, id string) error

	ListAlerts(ctx context.Context) ([]models.PriceAlert, error)
	InsertAlert(ctx context.Context, a models.PriceAlert) (*models.PriceAlert, error)
	UpdateAlert(ctx context.Context, id string, condition models.AlertCondition, target float64) (*models.PriceAlert, error)
	MarkAlertTriggered(ctx context.Context, id string) error
	DeleteAlert(ctx context.Context, id string) error
}

// refreshState guards the quote refresh: at most one fetch cycle is in
// flight; a refresh triggered while one is outstanding is dropped, not
// queued.
type refreshState int

const (
	refreshIdle refreshState = iota
	refreshFetching
)

// Controller owns the authoritative in-memory holdings and alerts lists and
// the transient quotes map, and derives all valuation metrics from them.
// Local state is mutated only after the backend confirms a change; there are
// no optimistic updates.
type Controller struct {
	backend  Backend
	provider quotes.Provider
	recorder store.Recorder
	logger   zerolog.Logger

	mu         sync.Mutex
	holdings   []models.Holding
	alerts     []models.PriceAlert
	quotes     map[string]models.Quote
	refresh    refreshState
	view       ViewState
	lastUpdate time.Time
	apiCalls   int
}

// NewController creates a controller. It registers for auth changes so a
// sign-in reloads both collections for the new identity and a sign-out
// clears them; data from a previous session never leaks into the next.
func NewController(b Backend, p quotes.Provider, rec store.Recorder, logger zerolog.Logger) *Controller {
	if rec == nil {
		rec = store.NewNoopRecorder()
	}
	c := &Controller{
		backend:  b,
		provider: p,
		recorder: rec,
		logger:   logger,
		quotes:   make(map[string]models.Quote),
		view:     viewReady(),
	}
	b.OnAuthChange(c.handleAuthChange)
	return c
}

func (c *Controller) handleAuthChange(user *models.User) {
	c.mu.Lock()
	c.holdings = nil
	c.alerts = nil
	c.quotes = make(map[string]models.Quote)
	c.lastUpdate = time.Time{}
	c.mu.Unlock()

	if user == nil {
		c.logger.Debug().Msg("auth cleared, local state dropped")
		return
	}
	c.logger.Debug().Str("user", user.Email).Msg("auth changed, reloading collections")
	if err := c.Load(context.Background()); err != nil {
		c.logger.Error().Err(err).Msg("reload after auth change failed")
	}
}

// Load fetches both collections for the signed-in user. Without a session
// the collections are simply empty; that is not an error.
func (c *Controller) Load(ctx context.Context) error {
	if _, err := c.backend.CurrentUser(); err != nil {
		c.mu.Lock()
		c.holdings = nil
		c.alerts = nil
		c.view = viewReady()
		c.mu.Unlock()
		return nil
	}

	c.setView(viewLoading())

	holdings, err := c.backend.ListHoldings(ctx)
	if err != nil {
		c.setView(viewError(err))
		return err
	}
	alerts, err := c.backend.ListAlerts(ctx)
	if err != nil {
		c.setView(viewError(err))
		return err
	}

	c.mu.Lock()
	c.holdings = holdings
	c.alerts = alerts
	c.view = viewReady()
	c.mu.Unlock()
	return nil
}

// Refresh fetches a fresh quote batch for the current holdings' symbols and
// replaces the quotes map wholesale, then evaluates alerts against the new
// snapshot. A refresh arriving while one is in flight is dropped. On fetch
// failure the previous quotes map is left untouched.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.refresh == refreshFetching {
		c.mu.Unlock()
		c.logger.Debug().Msg("refresh already in flight, dropping")
		return nil
	}
	c.refresh = refreshFetching
	symbols := uniqueSymbols(c.holdings)
	c.view = viewLoading()
	c.mu.Unlock()

	// The guard covers the entire cycle, alert evaluation and snapshot
	// recording included. A refresh arriving while an alert trigger is
	// still being persisted is dropped rather than evaluating the same
	// alert a second time.
	defer func() {
		c.mu.Lock()
		c.refresh = refreshIdle
		c.mu.Unlock()
	}()

	if len(symbols) == 0 {
		c.mu.Lock()
		c.quotes = make(map[string]models.Quote)
		c.view = viewReady()
		c.mu.Unlock()
		return nil
	}

	fetched, err := c.provider.GetBatchQuotes(ctx, symbols)
	if err != nil {
		// No replacement was attempted; the prior mapping stays intact.
		c.setView(viewError(err))
		return err
	}

	c.mu.Lock()
	snapshot := make(map[string]models.Quote, len(fetched))
	for _, q := range fetched {
		snapshot[q.Symbol] = q
	}
	c.quotes = snapshot
	c.lastUpdate = time.Now()
	c.apiCalls += EstimatedAPICalls(len(symbols))
	c.view = viewReady()
	summary := Summarize(c.holdings, c.quotes)
	c.mu.Unlock()

	// Alert evaluation observes exactly this refresh's snapshot.
	evalErr := c.evaluateAlerts(ctx, snapshot)

	c.recordRefresh(symbols, snapshot, summary)

	return evalErr
}

// evaluateAlerts triggers every untriggered alert whose symbol has a quote
// in the snapshot and whose condition the price satisfies. Each trigger is
// persisted first and only then reflected locally, so at most one write is
// ever issued per alert.
func (c *Controller) evaluateAlerts(ctx context.Context, snapshot map[string]models.Quote) error {
	c.mu.Lock()
	pending := make([]models.PriceAlert, len(c.alerts))
	copy(pending, c.alerts)
	c.mu.Unlock()

	var firstErr error
	for _, alert := range pending {
		if alert.Triggered {
			continue
		}
		q, ok := snapshot[alert.Symbol]
		if !ok {
			continue
		}
		if !alert.ShouldTrigger(q.Price) {
			continue
		}

		if err := c.backend.MarkAlertTriggered(ctx, alert.ID); err != nil {
			slog := logging.WithSymbol(c.logger, alert.Symbol)
			slog.Error().
				Err(err).
				Str("alert_id", alert.ID).
				Msg("failed to persist alert trigger")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		c.mu.Lock()
		for i := range c.alerts {
			if c.alerts[i].ID == alert.ID {
				c.alerts[i].Triggered = true
				c.alerts[i].UpdatedAt = time.Now()
			}
		}
		c.mu.Unlock()
		logging.LogAlert(c.logger, alert.ID, alert.Symbol, string(alert.Condition), q.Price)
	}

	if firstErr != nil {
		c.setView(viewError(firstErr))
	}
	return firstErr
}

func (c *Controller) recordRefresh(symbols []string, snapshot map[string]models.Quote, summary Summary) {
	prices := make(map[string]float64, len(snapshot))
	for sym, q := range snapshot {
		prices[sym] = q.Price
	}
	snap := &store.RefreshSnapshot{
		Timestamp:     time.Now(),
		Symbols:       symbols,
		APICalls:      EstimatedAPICalls(len(symbols)),
		TotalValue:    summary.TotalValue,
		TotalInvested: summary.TotalInvested,
		GainLoss:      summary.GainLoss,
		Prices:        prices,
	}
	if err := c.recorder.RecordRefresh(snap); err != nil {
		c.logger.Warn().Err(err).Msg("failed to record refresh snapshot")
	}
}

// AddHolding validates input, creates the holding remotely, and prepends it
// locally on success.
func (c *Controller) AddHolding(ctx context.Context, symbol, name string, shares, purchasePrice float64) (*models.Holding, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, c.fail(apperrors.NewValidationError("symbol", symbol, "symbol is required"))
	}
	if shares < 0 {
		return nil, c.fail(apperrors.NewValidationError("shares", shares, "share count must not be negative"))
	}
	if purchasePrice < 0 {
		return nil, c.fail(apperrors.NewValidationError("purchase_price", purchasePrice, "purchase price must not be negative"))
	}
	if name == "" {
		name = symbol
	}

	created, err := c.backend.InsertHolding(ctx, models.Holding{
		Symbol:        symbol,
		Name:          name,
		Shares:        shares,
		PurchasePrice: purchasePrice,
	})
	if err != nil {
		return nil, c.fail(err)
	}

	c.mu.Lock()
	c.holdings = append([]models.Holding{*created}, c.holdings...)
	c.view = viewReady()
	c.mu.Unlock()
	return created, nil
}

// UpdateHolding validates input, updates the holding remotely, and mirrors
// the stored row locally on success.
func (c *Controller) UpdateHolding(ctx context.Context, id, symbol, name string, shares, purchasePrice float64) (*models.Holding, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, c.fail(apperrors.NewValidationError("symbol", symbol, "symbol is required"))
	}
	if shares < 0 {
		return nil, c.fail(apperrors.NewValidationError("shares", shares, "share count must not be negative"))
	}
	if purchasePrice < 0 {
		return nil, c.fail(apperrors.NewValidationError("purchase_price", purchasePrice, "purchase price must not be negative"))
	}
	if name == "" {
		name = symbol
	}

	updated, err := c.backend.UpdateHolding(ctx, id, models.Holding{
		Symbol:        symbol,
		Name:          name,
		Shares:        shares,
		PurchasePrice: purchasePrice,
	})
	if err != nil {
		return nil, c.fail(err)
	}

	c.mu.Lock()
	for i := range c.holdings {
		if c.holdings[i].ID == id {
			c.holdings[i] = *updated
		}
	}
	c.view = viewReady()
	c.mu.Unlock()
	return updated, nil
}

// DeleteHolding removes the holding remotely and locally on success.
func (c *Controller) DeleteHolding(ctx context.Context, id string) error {
	if err := c.backend.DeleteHolding(ctx, id); err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	kept := c.holdings[:0]
	for _, h := range c.holdings {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	c.holdings = kept
	c.view = viewReady()
	c.mu.Unlock()
	return nil
}

// AddAlert validates input, creates the alert remotely, and prepends it
// locally on success.
func (c *Controller) AddAlert(ctx context.Context, symbol string, condition models.AlertCondition, target float64) (*models.PriceAlert, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, c.fail(apperrors.NewValidationError("symbol", symbol, "symbol is required"))
	}
	if !condition.Valid() {
		return nil, c.fail(apperrors.NewValidationError("condition", condition, "condition must be above or below"))
	}
	if target < 0 {
		return nil, c.fail(apperrors.NewValidationError("target_price", target, "target price must not be negative"))
	}

	created, err := c.backend.InsertAlert(ctx, models.PriceAlert{
		Symbol:      symbol,
		Condition:   condition,
		TargetPrice: target,
	})
	if err != nil {
		return nil, c.fail(err)
	}

	c.mu.Lock()
	c.alerts = append([]models.PriceAlert{*created}, c.alerts...)
	c.view = viewReady()
	c.mu.Unlock()
	return created, nil
}

// UpdateAlert rewrites an alert's condition and target remotely and mirrors
// the stored row locally on success.
func (c *Controller) UpdateAlert(ctx context.Context, id string, condition models.AlertCondition, target float64) (*models.PriceAlert, error) {
	if !condition.Valid() {
		return nil, c.fail(apperrors.NewValidationError("condition", condition, "condition must be above or below"))
	}
	if target < 0 {
		return nil, c.fail(apperrors.NewValidationError("target_price", target, "target price must not be negative"))
	}

	updated, err := c.backend.UpdateAlert(ctx, id, condition, target)
	if err != nil {
		return nil, c.fail(err)
	}

	c.mu.Lock()
	for i := range c.alerts {
		if c.alerts[i].ID == id {
			c.alerts[i] = *updated
		}
	}
	c.view = viewReady()
	c.mu.Unlock()
	return updated, nil
}

// DeleteAlert removes the alert remotely and locally on success.
func (c *Controller) DeleteAlert(ctx context.Context, id string) error {
	if err := c.backend.DeleteAlert(ctx, id); err != nil {
		return c.fail(err)
	}

	c.mu.Lock()
	kept := c.alerts[:0]
	for _, a := range c.alerts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	c.alerts = kept
	c.view = viewReady()
	c.mu.Unlock()
	return nil
}

// minSearchLength is the minimum query length before the provider is asked.
const minSearchLength = 2

// SearchSymbols queries the provider for instruments matching query. Short
// queries fail validation before any network call.
func (c *Controller) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if len(query) < minSearchLength {
		return nil, c.fail(apperrors.NewValidationError("query", query, "query must be at least 2 characters"))
	}

	c.mu.Lock()
	c.apiCalls++ // a search costs one provider call
	c.mu.Unlock()

	matches, err := c.provider.SearchSymbols(ctx, query)
	if err != nil {
		return nil, c.fail(err)
	}
	return matches, nil
}

// fail records err in the view state and passes it through; the controller
// never swallows an error silently.
func (c *Controller) fail(err error) error {
	c.setView(viewError(err))
	return err
}

func (c *Controller) setView(v ViewState) {
	c.mu.Lock()
	c.view = v
	c.mu.Unlock()
}

// State returns the current view state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Holdings returns a copy of the holdings list.
func (c *Controller) Holdings() []models.Holding {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Holding, len(c.holdings))
	copy(out, c.holdings)
	return out
}

// Alerts returns a copy of the alerts list.
func (c *Controller) Alerts() []models.PriceAlert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.PriceAlert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// Quotes returns a copy of the current quotes map.
func (c *Controller) Quotes() map[string]models.Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]models.Quote, len(c.quotes))
	for k, v := range c.quotes {
		out[k] = v
	}
	return out
}

// Summary computes the portfolio summary from current state.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Summarize(c.holdings, c.quotes)
}

// LastUpdate returns when the quotes map was last replaced.
func (c *Controller) LastUpdate() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUpdate
}

// APICallsUsed returns the provider calls estimated for this session.
func (c *Controller) APICallsUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiCalls
}
