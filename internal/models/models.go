// Package models defines the core data types shared across the application.
package models

import "time"

// Holding represents a recorded purchase of shares, owned by a user.
// Field names mirror the backend's portfolio table columns.
type Holding struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Shares        float64   `json:"shares"`
	PurchasePrice float64   `json:"purchase_price"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Quote is a point-in-time price snapshot for a symbol. Quotes are never
// persisted; they live only in the controller's in-memory map and are
// replaced wholesale on every refresh.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	LastUpdate    time.Time `json:"last_update"`
	IsMarketOpen  bool      `json:"is_market_open"`
}

// SymbolMatch is a single symbol-search result.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
}

// User is the identity returned by the auth provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
