package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// BollingerBands computes a rolling mean with bands k standard deviations away.
type BollingerBands struct {
	period int     // Number of periods for moving average
	stdDev float64 // Number of standard deviations
}

// NewBollingerBands creates Bollinger Bands with period 20 and k = 2.
func NewBollingerBands() *BollingerBands {
	return &BollingerBands{
		period: 20,
		stdDev: 2.0,
	}
}

func (bb *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Config configures the Bollinger Bands indicator. Expected parameters: period (int), stdDev (float64).
func (bb *BollingerBands) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeInvalidInput, "Config expects 2 parameters: period (int), stdDev (float64)")
	}

	period, err := parsePeriod(params, "period")
	if err != nil {
		return err
	}

	stdDev, ok := params[1].(float64)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "invalid type for stdDev parameter, expected float64")
	}

	if stdDev <= 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "stdDev must be a positive number, got %f", stdDev)
	}

	bb.period = period
	bb.stdDev = stdDev

	return nil
}

// Calculate returns the lower, middle and upper bands for closes.
// Early values use every close seen so far, so the first point has all three
// lines equal to the close.
func (bb *BollingerBands) Calculate(closes []float64) (types.BandSeries, error) {
	if err := requireInput(closes, bb.Name()); err != nil {
		return types.BandSeries{}, err
	}

	bands := types.BandSeries{
		Lower:  make([]float64, len(closes)),
		Middle: make([]float64, len(closes)),
		Upper:  make([]float64, len(closes)),
	}

	for i := range closes {
		start := i + 1 - bb.period
		if start < 0 {
			start = 0
		}

		upper, middle, lower := bb.calculateBands(closes[start : i+1])
		bands.Upper[i] = upper
		bands.Middle[i] = middle
		bands.Lower[i] = lower
	}

	return bands, nil
}

// calculateBands uses the population standard deviation of window.
func (bb *BollingerBands) calculateBands(window []float64) (upper, middle, lower float64) {
	sum := 0.0
	for _, v := range window {
		sum += v
	}

	middle = sum / float64(len(window))

	sumSquares := 0.0

	for _, v := range window {
		diff := v - middle
		sumSquares += diff * diff
	}

	stdDev := math.Sqrt(sumSquares / float64(len(window)))

	upper = middle + bb.stdDev*stdDev
	lower = middle - bb.stdDev*stdDev

	return upper, middle, lower
}
