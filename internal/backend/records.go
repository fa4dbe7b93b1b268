package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/manumarlats408/stocks/internal/errors"
	"github.com/manumarlats408/stocks/internal/logging"
	"github.com/manumarlats408/stocks/internal/models"
)

const (
	holdingsTable = "portfolio"
	alertsTable   = "price_alerts"
)

// ListHoldings returns the user's holdings, newest first.
func (c *Client) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	var holdings []models.Holding
	err := c.rest(ctx, http.MethodGet, holdingsTable, "select=*&order=created_at.desc", nil, &holdings)
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

// InsertHolding creates a holding for the signed-in user and returns the
// stored row.
func (c *Client) InsertHolding(ctx context.Context, h models.Holding) (*models.Holding, error) {
	user, err := c.CurrentUser()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"user_id":        user.ID,
		"symbol":         h.Symbol,
		"name":           h.Name,
		"shares":         h.Shares,
		"purchase_price": h.PurchasePrice,
	}
	var rows []models.Holding
	if err := c.rest(ctx, http.MethodPost, holdingsTable, "", payload, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewPersistenceError("insert holding", "backend returned no row", nil)
	}
	return &rows[0], nil
}

// UpdateHolding rewrites a holding's mutable fields, stamping updated_at,
// and returns the stored row.
func (c *Client) UpdateHolding(ctx context.Context, id string, h models.Holding) (*models.Holding, error) {
	payload := map[string]interface{}{
		"symbol":         h.Symbol,
		"name":           h.Name,
		"shares":         h.Shares,
		"purchase_price": h.PurchasePrice,
		"updated_at":     time.Now().UTC().Format(time.RFC3339),
	}
	var rows []models.Holding
	if err := c.rest(ctx, http.MethodPatch, holdingsTable, "id=eq."+id, payload, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewPersistenceError("update holding", "no row matched id "+id, nil)
	}
	return &rows[0], nil
}

// DeleteHolding removes a holding by id.
func (c *Client) DeleteHolding(ctx context.Context, id string) error {
	return c.rest(ctx, http.MethodDelete, holdingsTable, "id=eq."+id, nil, nil)
}

// ListAlerts returns the user's price alerts, newest first.
func (c *Client) ListAlerts(ctx context.Context) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	err := c.rest(ctx, http.MethodGet, alertsTable, "select=*&order=created_at.desc", nil, &alerts)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// InsertAlert creates an untriggered price alert for the signed-in user and
// returns the stored row.
func (c *Client) InsertAlert(ctx context.Context, a models.PriceAlert) (*models.PriceAlert, error) {
	user, err := c.CurrentUser()
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"user_id":      user.ID,
		"symbol":       a.Symbol,
		"alert_type":   a.Condition,
		"target_price": a.TargetPrice,
		"triggered":    false,
	}
	var rows []models.PriceAlert
	if err := c.rest(ctx, http.MethodPost, alertsTable, "", payload, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewPersistenceError("insert alert", "backend returned no row", nil)
	}
	return &rows[0], nil
}

// UpdateAlert rewrites an alert's condition and target price, stamping
// updated_at, and returns the stored row.
func (c *Client) UpdateAlert(ctx context.Context, id string, condition models.AlertCondition, target float64) (*models.PriceAlert, error) {
	payload := map[string]interface{}{
		"alert_type":   condition,
		"target_price": target,
		"updated_at":   time.Now().UTC().Format(time.RFC3339),
	}
	var rows []models.PriceAlert
	if err := c.rest(ctx, http.MethodPatch, alertsTable, "id=eq."+id, payload, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewPersistenceError("update alert", "no row matched id "+id, nil)
	}
	return &rows[0], nil
}

// MarkAlertTriggered sets an alert's triggered flag, stamping updated_at.
// The flag is monotonic: the evaluation loop only ever flips it to true.
func (c *Client) MarkAlertTriggered(ctx context.Context, id string) error {
	payload := map[string]interface{}{
		"triggered":  true,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	return c.rest(ctx, http.MethodPatch, alertsTable, "id=eq."+id, payload, nil)
}

// DeleteAlert removes an alert by id.
func (c *Client) DeleteAlert(ctx context.Context, id string) error {
	return c.rest(ctx, http.MethodDelete, alertsTable, "id=eq."+id, nil, nil)
}

// rest performs an authenticated REST call against a table endpoint. Every
// operation requires a session; without one it fails before any network
// call. The row-level scoping to the signed-in user is enforced by the
// backend through the bearer token.
func (c *Client) rest(ctx context.Context, method, table, query string, payload interface{}, out interface{}) (err error) {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()
	if sess == nil {
		return apperrors.ErrNotAuthenticated
	}

	start := time.Now()
	defer func() {
		logging.LogAPICall(c.logger, method, "/rest/v1/"+table, time.Since(start), err)
	}()

	u := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if query != "" {
		u += "?" + query
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return apperrors.NewPersistenceError(method+" "+table, "encoding payload", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return apperrors.NewPersistenceError(method+" "+table, "building request", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewPersistenceError(method+" "+table, "backend unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewPersistenceError(method+" "+table, "reading response body", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.NewPersistenceError(method+" "+table, "session rejected by backend", apperrors.ErrSessionExpired)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewPersistenceError(method+" "+table, errorMessage(data, resp.Status), nil)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.NewPersistenceError(method+" "+table, "decoding response", err)
		}
	}
	return nil
}
