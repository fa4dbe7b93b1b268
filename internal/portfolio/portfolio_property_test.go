package portfolio

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/manumarlats408/stocks/internal/models"
)

// Property: total portfolio value equals the sum of the per-holding values,
// where holdings without a quote contribute exactly zero.
func TestProperty_TotalValueIsSumOfHoldingValues(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("total value is the sum of holding values", prop.ForAll(
		func(count int, shares, prices []float64, quoted []bool) bool {
			holdings, quotesMap := buildPortfolio(count, shares, prices, quoted)

			sum := 0.0
			for _, h := range holdings {
				if v, ok := HoldingValue(h, quotesMap); ok {
					sum += v
				}
			}
			return math.Abs(TotalValue(holdings, quotesMap)-sum) < 1e-6
		},
		gen.IntRange(0, 20),
		gen.SliceOfN(20, gen.Float64Range(0, 1000)),
		gen.SliceOfN(20, gen.Float64Range(0.01, 5000)),
		gen.SliceOfN(20, gen.Bool()),
	))

	properties.Property("gain/loss is value minus invested", prop.ForAll(
		func(count int, shares, prices []float64, quoted []bool) bool {
			holdings, quotesMap := buildPortfolio(count, shares, prices, quoted)
			want := TotalValue(holdings, quotesMap) - TotalInvested(holdings)
			return math.Abs(GainLoss(holdings, quotesMap)-want) < 1e-6
		},
		gen.IntRange(0, 20),
		gen.SliceOfN(20, gen.Float64Range(0, 1000)),
		gen.SliceOfN(20, gen.Float64Range(0.01, 5000)),
		gen.SliceOfN(20, gen.Bool()),
	))

	properties.TestingRun(t)
}

// Property: percentage metrics are always finite. A zero cost basis yields
// zero percent instead of dividing by zero.
func TestProperty_PercentagesAreFinite(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("gain/loss percent is never NaN or Inf", prop.ForAll(
		func(count int, shares, prices []float64, quoted []bool) bool {
			holdings, quotesMap := buildPortfolio(count, shares, prices, quoted)
			pct := GainLossPercent(holdings, quotesMap)
			return !math.IsNaN(pct) && !math.IsInf(pct, 0)
		},
		gen.IntRange(0, 20),
		// Zero shares and zero purchase prices are common here, forcing
		// the zero-invested branch often.
		gen.SliceOfN(20, gen.Float64Range(0, 10)),
		gen.SliceOfN(20, gen.Float64Range(0, 10)),
		gen.SliceOfN(20, gen.Bool()),
	))

	properties.Property("diversification shares of quoted holdings sum to 100", prop.ForAll(
		func(count int, shares, prices []float64) bool {
			// All holdings quoted and all values positive.
			holdings, quotesMap := buildPortfolio(count, shares, prices, nil)
			if TotalValue(holdings, quotesMap) <= 0 {
				return true
			}
			sum := 0.0
			for _, h := range holdings {
				share, ok := DiversificationShare(h, holdings, quotesMap)
				if !ok {
					return false
				}
				sum += share
			}
			return math.Abs(sum-100) < 1e-6
		},
		gen.IntRange(1, 20),
		gen.SliceOfN(20, gen.Float64Range(0.01, 1000)),
		gen.SliceOfN(20, gen.Float64Range(0.01, 5000)),
	))

	properties.TestingRun(t)
}

// Property: the provider call estimate is the ceiling of n/8: it increases
// by one exactly every eighth symbol.
func TestProperty_APICallEstimateCeiling(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("estimate equals ceil(n/8)", prop.ForAll(
		func(n int) bool {
			got := EstimatedAPICalls(n)
			if n <= 0 {
				return got == 0
			}
			want := (n + 7) / 8
			return got == want
		},
		gen.IntRange(-5, 500),
	))

	properties.TestingRun(t)
}

// buildPortfolio assembles count holdings with the given shares and prices.
// quoted[i] controls whether a symbol gets a quote; a nil slice quotes all.
// Distinct symbols per index keep the quotes map unambiguous.
func buildPortfolio(count int, shares, prices []float64, quoted []bool) ([]models.Holding, map[string]models.Quote) {
	holdings := make([]models.Holding, 0, count)
	quotesMap := make(map[string]models.Quote, count)
	for i := 0; i < count && i < len(shares) && i < len(prices); i++ {
		sym := fmt.Sprintf("SYM%02d", i)
		holdings = append(holdings, models.Holding{
			Symbol:        sym,
			Name:          sym,
			Shares:        shares[i],
			PurchasePrice: prices[i],
		})
		if quoted == nil || (i < len(quoted) && quoted[i]) {
			quotesMap[sym] = models.Quote{Symbol: sym, Price: prices[i] * 1.1}
		}
	}
	return holdings, quotesMap
}
