package portfolio

import (
	"math"

	"github.com/manumarlats408/stocks/internal/models"
	"github.com/manumarlats408/stocks/internal/quotes"
)

// Valuation metrics are pure functions of holdings and the current quotes
// map. They are recomputed on every render and never persisted.

// TotalValue sums quote price times share count over holdings with a known
// quote. Holdings without a quote contribute zero.
func TotalValue(holdings []models.Holding, quotesMap map[string]models.Quote) float64 {
	total := 0.0
	for _, h := range holdings {
		if q, ok := quotesMap[h.Symbol]; ok {
			total += q.Price * h.Shares
		}
	}
	return total
}

// TotalInvested sums purchase price times share count over all holdings,
// independent of quotes.
func TotalInvested(holdings []models.Holding) float64 {
	total := 0.0
	for _, h := range holdings {
		total += h.PurchasePrice * h.Shares
	}
	return total
}

// GainLoss is total value minus total invested.
func GainLoss(holdings []models.Holding, quotesMap map[string]models.Quote) float64 {
	return TotalValue(holdings, quotesMap) - TotalInvested(holdings)
}

// GainLossPercent is the gain as a percentage of the amount invested, or
// zero when nothing is invested.
func GainLossPercent(holdings []models.Holding, quotesMap map[string]models.Quote) float64 {
	invested := TotalInvested(holdings)
	if invested <= 0 {
		return 0
	}
	return GainLoss(holdings, quotesMap) / invested * 100
}

// HoldingValue returns the current value of one holding. ok is false when
// the holding has no quote.
func HoldingValue(h models.Holding, quotesMap map[string]models.Quote) (value float64, ok bool) {
	q, ok := quotesMap[h.Symbol]
	if !ok {
		return 0, false
	}
	return q.Price * h.Shares, true
}

// HoldingGain returns one holding's gain over its purchase cost. ok is
// false when the holding has no quote.
func HoldingGain(h models.Holding, quotesMap map[string]models.Quote) (gain float64, ok bool) {
	value, ok := HoldingValue(h, quotesMap)
	if !ok {
		return 0, false
	}
	return value - h.PurchasePrice*h.Shares, true
}

// DiversificationShare returns one holding's proportion of total portfolio
// value as a percentage. ok is false when the holding has no quote or the
// portfolio has no value; callers skip rendering in that case.
func DiversificationShare(h models.Holding, holdings []models.Holding, quotesMap map[string]models.Quote) (share float64, ok bool) {
	total := TotalValue(holdings, quotesMap)
	if total <= 0 {
		return 0, false
	}
	value, ok := HoldingValue(h, quotesMap)
	if !ok {
		return 0, false
	}
	return value / total * 100, true
}

// EstimatedAPICalls is the number of provider calls a refresh of n symbols
// costs, mirroring the provider's batch group size. Informational only;
// never enforced as a limiter.
func EstimatedAPICalls(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / float64(quotes.BatchSize)))
}

// Summary bundles the portfolio-level valuation metrics.
type Summary struct {
	TotalValue      float64 `json:"total_value"`
	TotalInvested   float64 `json:"total_invested"`
	GainLoss        float64 `json:"gain_loss"`
	GainLossPercent float64 `json:"gain_loss_percent"`
	HoldingCount    int     `json:"holding_count"`
	APICallEstimate int     `json:"api_call_estimate"`
}

// Summarize computes the portfolio summary for the given state.
func Summarize(holdings []models.Holding, quotesMap map[string]models.Quote) Summary {
	return Summary{
		TotalValue:      TotalValue(holdings, quotesMap),
		TotalInvested:   TotalInvested(holdings),
		GainLoss:        GainLoss(holdings, quotesMap),
		GainLossPercent: GainLossPercent(holdings, quotesMap),
		HoldingCount:    len(holdings),
		APICallEstimate: EstimatedAPICalls(len(uniqueSymbols(holdings))),
	}
}

// uniqueSymbols returns the distinct holding symbols preserving first
// occurrence order.
func uniqueSymbols(holdings []models.Holding) []string {
	seen := make(map[string]bool, len(holdings))
	var symbols []string
	for _, h := range holdings {
		if h.Symbol == "" || seen[h.Symbol] {
			continue
		}
		seen[h.Symbol] = true
		symbols = append(symbols, h.Symbol)
	}
	return symbols
}
