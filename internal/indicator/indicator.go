package indicator

import (
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// Indicator is the configuration surface shared by every indicator.
// Each concrete indicator also exposes a typed Calculate method over closes.
type Indicator interface {
	// Name returns the name of the indicator
	Name() types.IndicatorType
	// Config reconfigures the indicator from positional parameters.
	Config(params ...any) error
}

func requireInput(closes []float64, name types.IndicatorType) error {
	if len(closes) == 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "%s: empty price sequence", name)
	}

	return nil
}

func parsePeriod(params []any, what string) (int, error) {
	period, ok := params[0].(int)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeInvalidInput, "invalid type for %s parameter, expected int", what)
	}

	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidInput, "%s must be a positive integer, got %d", what, period)
	}

	return period, nil
}
