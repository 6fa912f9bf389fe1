package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// EngineConfig holds the parameters of the four indicators.
type EngineConfig struct {
	EMAPeriod      int
	RSIPeriod      int
	BBPeriod       int
	BBStdDev       float64
	GChannelLength int
}

// DefaultEngineConfig mirrors the indicator defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		EMAPeriod:      20,
		RSIPeriod:      14,
		BBPeriod:       20,
		BBStdDev:       2.0,
		GChannelLength: 10,
	}
}

// Engine computes an IndicatorSnapshot from the full visible history on every
// call. It keeps no state between calls.
type Engine struct {
	registry *Registry
	ema      *EMA
	rsi      *RSI
	bands    *BollingerBands
	channel  *GChannel
}

// NewEngine registers and configures the trend, momentum, volatility and
// channel indicators.
func NewEngine(config EngineConfig) (*Engine, error) {
	e := &Engine{
		registry: NewRegistry(),
		ema:      NewEMA(),
		rsi:      NewRSI(),
		bands:    NewBollingerBands(),
		channel:  NewGChannel(),
	}

	for _, ind := range []Indicator{e.ema, e.rsi, e.bands, e.channel} {
		if err := e.registry.Register(ind); err != nil {
			return nil, err
		}
	}

	params := map[types.IndicatorType][]any{
		types.IndicatorTypeEMA:            {config.EMAPeriod},
		types.IndicatorTypeRSI:            {config.RSIPeriod},
		types.IndicatorTypeBollingerBands: {config.BBPeriod, config.BBStdDev},
		types.IndicatorTypeGChannel:       {config.GChannelLength},
	}

	for name, p := range params {
		if err := e.Configure(name, p...); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Configure reconfigures one registered indicator by name.
func (e *Engine) Configure(name types.IndicatorType, params ...any) error {
	ind, err := e.registry.Get(name)
	if err != nil {
		return err
	}

	if err := ind.Config(params...); err != nil {
		return fmt.Errorf("configure %s: %w", name, err)
	}

	return nil
}

// Indicators lists the registered indicator names in registration order.
func (e *Engine) Indicators() []types.IndicatorType {
	return e.registry.Names()
}

// Compute derives every indicator from bars. Empty input fails with InvalidInput.
func (e *Engine) Compute(bars []types.PriceBar) (types.IndicatorSnapshot, error) {
	return e.ComputeCloses(types.Closes(bars))
}

// ComputeCloses is Compute over bare close prices.
func (e *Engine) ComputeCloses(closes []float64) (types.IndicatorSnapshot, error) {
	ema, err := e.ema.Calculate(closes)
	if err != nil {
		return types.IndicatorSnapshot{}, err
	}

	rsi, err := e.rsi.Calculate(closes)
	if err != nil {
		return types.IndicatorSnapshot{}, err
	}

	bands, err := e.bands.Calculate(closes)
	if err != nil {
		return types.IndicatorSnapshot{}, err
	}

	channel, tag, err := e.channel.Calculate(closes)
	if err != nil {
		return types.IndicatorSnapshot{}, err
	}

	return types.IndicatorSnapshot{
		EMA:           ema,
		RSI:           rsi,
		Bands:         bands,
		Channel:       channel,
		ChannelSignal: tag,
	}, nil
}
