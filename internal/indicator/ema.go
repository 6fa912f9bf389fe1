package indicator

import (
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// EMA implements Exponential Moving Average calculation.
type EMA struct {
	period int
}

// NewEMA creates a new EMA indicator with the default period of 20.
func NewEMA() *EMA {
	return &EMA{
		period: 20,
	}
}

func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Config configures the EMA indicator. Expected parameters: period (int).
func (e *EMA) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "Config expects 1 parameter: period (int)")
	}

	period, err := parsePeriod(params, "period")
	if err != nil {
		return err
	}

	e.period = period

	return nil
}

// Calculate returns the EMA of closes, one value per input.
// The multiplier is 2/(period+1) and the first output is the first close.
func (e *EMA) Calculate(closes []float64) ([]float64, error) {
	if err := requireInput(closes, e.Name()); err != nil {
		return nil, err
	}

	alpha := 2.0 / float64(e.period+1)

	out := make([]float64, len(closes))
	out[0] = closes[0]

	for i := 1; i < len(closes); i++ {
		out[i] = closes[i]*alpha + out[i-1]*(1-alpha)
	}

	return out, nil
}
