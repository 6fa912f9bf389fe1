package risk

import (
	"math"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// EstimateHedgingMetrics derives simple exposure metrics from closes: delta is
// the mean simple return, gamma its population standard deviation and
// volatility its variance. Fewer than two closes yield zero metrics.
//
// These are heuristics for feeding Manager.UpdateHedgingMetrics, not a
// volatility model.
func EstimateHedgingMetrics(closes []float64) types.HedgingMetrics {
	if len(closes) < 2 {
		return types.HedgingMetrics{}
	}

	returns := make([]float64, 0, len(closes)-1)

	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}

		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}

	if len(returns) == 0 {
		return types.HedgingMetrics{}
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0

	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns))

	return types.HedgingMetrics{
		Delta:      mean,
		Gamma:      math.Sqrt(variance),
		Volatility: variance,
	}
}
