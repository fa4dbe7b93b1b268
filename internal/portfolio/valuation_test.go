package portfolio

import (
	"math"
	"testing"

	"github.com/manumarlats408/stocks/internal/models"
)

func holding(symbol string, shares, price float64) models.Holding {
	return models.Holding{Symbol: symbol, Name: symbol, Shares: shares, PurchasePrice: price}
}

func quote(symbol string, price float64) models.Quote {
	return models.Quote{Symbol: symbol, Price: price}
}

func TestValuation_SingleHolding(t *testing.T) {
	holdings := []models.Holding{holding("AAPL", 10, 100)}
	quotesMap := map[string]models.Quote{"AAPL": quote("AAPL", 150)}

	if v := TotalValue(holdings, quotesMap); v != 1500 {
		t.Errorf("TotalValue = %v, want 1500", v)
	}
	if v := TotalInvested(holdings); v != 1000 {
		t.Errorf("TotalInvested = %v, want 1000", v)
	}
	if v := GainLoss(holdings, quotesMap); v != 500 {
		t.Errorf("GainLoss = %v, want 500", v)
	}
	if v := GainLossPercent(holdings, quotesMap); v != 50 {
		t.Errorf("GainLossPercent = %v, want 50", v)
	}
}

func TestValuation_MissingQuoteContributesZero(t *testing.T) {
	holdings := []models.Holding{
		holding("AAPL", 10, 100),
		holding("MSFT", 5, 200),
	}
	quotesMap := map[string]models.Quote{"AAPL": quote("AAPL", 150)}

	if v := TotalValue(holdings, quotesMap); v != 1500 {
		t.Errorf("TotalValue = %v, want 1500 (MSFT has no quote)", v)
	}
	// Invested still counts the quoteless holding.
	if v := TotalInvested(holdings); v != 2000 {
		t.Errorf("TotalInvested = %v, want 2000", v)
	}

	if _, ok := HoldingValue(holdings[1], quotesMap); ok {
		t.Error("HoldingValue for quoteless holding must report ok=false")
	}
	if _, ok := HoldingGain(holdings[1], quotesMap); ok {
		t.Error("HoldingGain for quoteless holding must report ok=false")
	}
}

func TestGainLossPercent_ZeroInvested(t *testing.T) {
	if v := GainLossPercent(nil, nil); v != 0 {
		t.Errorf("GainLossPercent(empty) = %v, want 0", v)
	}
	holdings := []models.Holding{holding("FREE", 10, 0)}
	quotesMap := map[string]models.Quote{"FREE": quote("FREE", 5)}
	if v := GainLossPercent(holdings, quotesMap); v != 0 {
		t.Errorf("GainLossPercent with zero cost basis = %v, want 0", v)
	}
}

func TestDiversificationShare(t *testing.T) {
	holdings := []models.Holding{
		holding("AAPL", 10, 100), // value 1500
		holding("MSFT", 5, 100),  // value 500
	}
	quotesMap := map[string]models.Quote{
		"AAPL": quote("AAPL", 150),
		"MSFT": quote("MSFT", 100),
	}

	share, ok := DiversificationShare(holdings[0], holdings, quotesMap)
	if !ok || math.Abs(share-75) > 1e-9 {
		t.Errorf("DiversificationShare(AAPL) = %v ok=%v, want 75", share, ok)
	}

	if _, ok := DiversificationShare(holdings[0], holdings, nil); ok {
		t.Error("expected ok=false when portfolio has no value")
	}
}

func TestEstimatedAPICalls(t *testing.T) {
	cases := []struct {
		n, want int
	}{
		{0, 0}, {1, 1}, {8, 1}, {9, 2}, {16, 2}, {17, 3}, {25, 4},
	}
	for _, tc := range cases {
		if got := EstimatedAPICalls(tc.n); got != tc.want {
			t.Errorf("EstimatedAPICalls(%d) = %d, want %d", tc.n, got, tc.want)
		}
	}
}

func TestUniqueSymbols(t *testing.T) {
	holdings := []models.Holding{
		holding("AAPL", 1, 1),
		holding("MSFT", 1, 1),
		holding("AAPL", 2, 2),
		{Symbol: "", Shares: 1},
	}
	got := uniqueSymbols(holdings)
	want := []string{"AAPL", "MSFT"}
	if len(got) != len(want) {
		t.Fatalf("uniqueSymbols = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("uniqueSymbols = %v, want %v", got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	holdings := []models.Holding{
		holding("AAPL", 10, 100),
		holding("AAPL", 5, 120), // duplicate symbol counts once for API estimate
	}
	quotesMap := map[string]models.Quote{"AAPL": quote("AAPL", 150)}

	s := Summarize(holdings, quotesMap)
	if s.HoldingCount != 2 {
		t.Errorf("HoldingCount = %d, want 2", s.HoldingCount)
	}
	if s.APICallEstimate != 1 {
		t.Errorf("APICallEstimate = %d, want 1", s.APICallEstimate)
	}
	if s.TotalValue != 2250 {
		t.Errorf("TotalValue = %v, want 2250", s.TotalValue)
	}
	if s.TotalInvested != 1600 {
		t.Errorf("TotalInvested = %v, want 1600", s.TotalInvested)
	}
}
