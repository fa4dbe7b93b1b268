package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/manumarlats408/stocks/internal/errors"
	"github.com/manumarlats408/stocks/internal/logging"
	"github.com/manumarlats408/stocks/internal/models"
)

// BatchSize is the provider-imposed maximum number of symbols per quote
// request.
const BatchSize = 8

// maxSearchResults caps the number of symbol-search matches returned.
const maxSearchResults = 10

// TwelveDataClient implements Provider using the Twelve Data REST API.
type TwelveDataClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
	now     func() time.Time
}

// NewTwelveDataClient creates a new Twelve Data client. A missing,
// placeholder, or obviously truncated API key fails with a ConfigError so
// callers can route to setup guidance instead of a transient-failure banner.
func NewTwelveDataClient(baseURL, apiKey string, logger zerolog.Logger) (*TwelveDataClient, error) {
	if apiKey == "" || apiKey == "your_api_key_here" || len(apiKey) < 10 {
		return nil, apperrors.NewConfigError("quotes",
			"Twelve Data API key is not configured; set TWELVE_DATA_API_KEY")
	}
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}
	return &TwelveDataClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Name identifies the provider.
func (c *TwelveDataClient) Name() string { return "twelvedata" }

// GetBatchQuotes fetches quotes for the given symbols, batching into groups
// of at most BatchSize per request. Group order follows input order and
// results are concatenated in group order. Any failing group aborts the
// whole operation; results from earlier groups are discarded.
func (c *TwelveDataClient) GetBatchQuotes(ctx context.Context, symbols []string) ([]models.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	groups := partition(symbols, BatchSize)
	results := make([]models.Quote, 0, len(symbols))
	for _, group := range groups {
		batch, err := c.fetchGroup(ctx, group)
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}

	c.logger.Debug().
		Int("symbols", len(symbols)).
		Int("calls", len(groups)).
		Msg("batch quote fetch completed")
	return results, nil
}

// partition splits symbols into groups of at most size, preserving order.
func partition(symbols []string, size int) [][]string {
	if size <= 0 {
		return nil
	}
	var groups [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		groups = append(groups, symbols[start:end])
	}
	return groups
}

func (c *TwelveDataClient) fetchGroup(ctx context.Context, symbols []string) ([]models.Quote, error) {
	u := fmt.Sprintf("%s/quote?symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(strings.Join(symbols, ",")), url.QueryEscape(c.apiKey))

	body, err := c.get(ctx, "/quote", u)
	if err != nil {
		return nil, err
	}

	records, err := normalize(body, symbols)
	if err != nil {
		return nil, err
	}

	open := marketOpen(c.now())
	quotes := make([]models.Quote, 0, len(records))
	for _, rec := range records {
		quotes = append(quotes, rec.toQuote(c.now(), open))
	}
	return quotes, nil
}

// SearchSymbols searches instruments matching the query, capped at
// maxSearchResults. Callers guard with a minimum query length; an empty
// query's behavior is provider-defined.
func (c *TwelveDataClient) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	u := fmt.Sprintf("%s/symbol_search?symbol=%s&apikey=%s",
		c.baseURL, url.QueryEscape(query), url.QueryEscape(c.apiKey))

	body, err := c.get(ctx, "/symbol_search", u)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    []struct {
			Symbol         string `json:"symbol"`
			InstrumentName string `json:"instrument_name"`
			Exchange       string `json:"exchange"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewProviderError(0, "decoding search response", err)
	}
	if resp.Status == "error" {
		return nil, apperrors.NewProviderError(0, providerMessage(resp.Message, "search failed"), nil)
	}

	matches := make([]models.SymbolMatch, 0, maxSearchResults)
	for _, item := range resp.Data {
		if len(matches) >= maxSearchResults {
			break
		}
		name := item.InstrumentName
		if name == "" {
			name = item.Symbol
		}
		exchange := item.Exchange
		if exchange == "" {
			exchange = "Unknown"
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:   item.Symbol,
			Name:     name,
			Exchange: exchange,
		})
	}
	return matches, nil
}

// get performs a GET against the provider. endpoint is the path logged for
// the call; the full URL carries the API key and is never logged.
func (c *TwelveDataClient) get(ctx context.Context, endpoint, u string) (body []byte, err error) {
	start := time.Now()
	defer func() {
		logging.LogAPICall(c.logger, http.MethodGet, endpoint, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperrors.NewProviderError(0, "building request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError(0, "quote provider unreachable", err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewProviderError(resp.StatusCode, "reading response body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewProviderError(resp.StatusCode,
			fmt.Sprintf("unexpected status %s", resp.Status), nil)
	}
	return body, nil
}

// rawQuote is the provider's per-symbol payload. Numeric fields arrive as
// strings; best-effort parsing maps anything non-numeric to zero.
type rawQuote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Close         flexFloat `json:"close"`
	Price         flexFloat `json:"price"`
	Change        flexFloat `json:"change"`
	PercentChange flexFloat `json:"percent_change"`
	Datetime      string    `json:"datetime"`
}

func (r *rawQuote) toQuote(now time.Time, open bool) models.Quote {
	price := float64(r.Close)
	if price == 0 {
		price = float64(r.Price)
	}
	name := r.Name
	if name == "" {
		name = r.Symbol
	}
	lastUpdate := now
	if r.Datetime != "" {
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, r.Datetime); err == nil {
				lastUpdate = t
				break
			}
		}
	}
	return models.Quote{
		Symbol:        r.Symbol,
		Name:          name,
		Price:         price,
		Change:        float64(r.Change),
		ChangePercent: float64(r.PercentChange),
		LastUpdate:    lastUpdate,
		IsMarketOpen:  open,
	}
}

// flexFloat parses JSON numbers that may arrive as numbers, quoted strings,
// or garbage. Unparseable values decode to zero rather than failing.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// normalize maps the provider's three response shapes to a flat record list:
// a single object for one symbol, a symbol-keyed object or an array for
// several. Records are reordered to match the requested symbol order;
// unrequested symbols, if any, keep their response order at the end.
func normalize(body []byte, requested []string) ([]rawQuote, error) {
	trimmed := strings.TrimSpace(string(body))

	var records []rawQuote
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, apperrors.NewProviderError(0, "decoding quote array", err)
		}
	} else {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, apperrors.NewProviderError(0, "decoding quote response", err)
		}

		if rawStatus, ok := envelope["status"]; ok {
			var status string
			if json.Unmarshal(rawStatus, &status) == nil && status == "error" {
				var msg string
				if rawMsg, ok := envelope["message"]; ok {
					_ = json.Unmarshal(rawMsg, &msg)
				}
				return nil, apperrors.NewProviderError(0, providerMessage(msg, "provider returned an error"), nil)
			}
		}

		if _, ok := envelope["symbol"]; ok {
			// Single-symbol response: the object is the record itself.
			var rec rawQuote
			if err := json.Unmarshal(body, &rec); err != nil {
				return nil, apperrors.NewProviderError(0, "decoding quote object", err)
			}
			records = append(records, rec)
		} else {
			// Symbol-keyed object: each value is a record.
			for _, raw := range envelope {
				var rec rawQuote
				if err := json.Unmarshal(raw, &rec); err != nil {
					continue
				}
				if rec.Symbol != "" {
					records = append(records, rec)
				}
			}
		}
	}

	return reorder(records, requested), nil
}

// reorder sorts records to match the requested symbol order. Symbols missing
// from the response are simply absent from the result.
func reorder(records []rawQuote, requested []string) []rawQuote {
	bySymbol := make(map[string]rawQuote, len(records))
	for _, rec := range records {
		if _, seen := bySymbol[rec.Symbol]; !seen {
			bySymbol[rec.Symbol] = rec
		}
	}

	ordered := make([]rawQuote, 0, len(records))
	taken := make(map[string]bool, len(requested))
	for _, sym := range requested {
		if taken[sym] {
			continue
		}
		if rec, ok := bySymbol[sym]; ok {
			ordered = append(ordered, rec)
			taken[sym] = true
		}
	}
	for _, rec := range records {
		if !taken[rec.Symbol] {
			ordered = append(ordered, rec)
			taken[rec.Symbol] = true
		}
	}
	return ordered
}

func providerMessage(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

// marketOpen is a coarse approximation of US market hours: Monday to Friday,
// local hour within [9,16). It is not exchange-calendar-aware and callers
// must not rely on precision.
func marketOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour := t.Hour()
	return hour >= 9 && hour < 16
}
