package indicator

import (
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// neutralRSI is reported when the window holds no price movement at all.
const neutralRSI = 50.0

// RSI represents the Relative Strength Index indicator.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with the default period of 14.
func NewRSI() *RSI {
	return &RSI{
		period: 14,
	}
}

func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Config configures the RSI indicator. Expected parameters: period (int).
func (r *RSI) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params, "period")
	if err != nil {
		return err
	}

	r.period = period

	return nil
}

// Calculate returns the RSI of closes on a 0-100 scale, one value per input.
//
// Each value averages the gains and losses of the trailing period deltas,
// or of as many as exist early in the series. A window without losses is
// 100, a window without gains is 0, and a window with no movement is 50.
func (r *RSI) Calculate(closes []float64) ([]float64, error) {
	if err := requireInput(closes, r.Name()); err != nil {
		return nil, err
	}

	out := make([]float64, len(closes))
	out[0] = neutralRSI

	for i := 1; i < len(closes); i++ {
		start := i - r.period
		if start < 0 {
			start = 0
		}

		var gains, losses float64

		for j := start + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gains += change
			} else {
				losses -= change
			}
		}

		out[i] = rsiValue(gains, losses)
	}

	return out, nil
}

// rsiValue maps summed gains and losses of one window to 0-100. The window
// length cancels out of the averages, so sums are enough.
func rsiValue(gains, losses float64) float64 {
	switch {
	case gains == 0 && losses == 0:
		return neutralRSI
	case losses == 0:
		return 100
	case gains == 0:
		return 0
	}

	rs := gains / losses

	return 100 - 100/(1+rs)
}
