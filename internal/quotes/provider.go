// Package quotes provides quote provider integration.
package quotes

import (
	"context"

	"github.com/manumarlats408/stocks/internal/models"
)

// Provider defines the interface for fetching live market data.
type Provider interface {
	// GetBatchQuotes fetches quotes for the given symbols. Empty input
	// yields empty output without a network call.
	GetBatchQuotes(ctx context.Context, symbols []string) ([]models.Quote, error)
	// SearchSymbols searches instruments matching the query.
	SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error)
	// Name identifies the provider.
	Name() string
}
