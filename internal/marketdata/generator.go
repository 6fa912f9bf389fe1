package marketdata

import (
	"context"
	"iter"
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// GeneratorConfig configures the random-walk price feed.
type GeneratorConfig struct {
	Symbol    string
	StartTime time.Time
	// Interval is the bar time step.
	Interval time.Duration
	// Count is the number of bars to produce. Zero streams until ctx is cancelled.
	Count        int
	InitialPrice float64
	// Volatility is the standard deviation of the per-bar return (0.002 = 0.2%).
	Volatility float64
	// Trend is the mean per-bar return.
	Trend float64
	// VolumeBase and VolumeVariance shape the uniform bar volume.
	VolumeBase     float64
	VolumeVariance float64
	Seed           int64
	// Delay is the wall-clock wait between bars. Zero emits as fast as possible.
	Delay time.Duration
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "BTCUSDT",
		StartTime:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:       time.Minute,
		Count:          1000,
		InitialPrice:   2000,
		Volatility:     0.002,
		Trend:          0,
		VolumeBase:     550,
		VolumeVariance: 0.8,
		Seed:           42,
	}
}

// GeneratorSource is a geometric Brownian motion feed. Each candle opens at
// the previous close.
type GeneratorSource struct {
	config GeneratorConfig
}

func NewGeneratorSource(config GeneratorConfig) *GeneratorSource {
	return &GeneratorSource{config: config}
}

func (g *GeneratorSource) Stream(ctx context.Context) iter.Seq2[types.PriceBar, error] {
	return func(yield func(types.PriceBar, error) bool) {
		walk := newRandomWalk(g.config)

		for i := 0; g.config.Count == 0 || i < g.config.Count; i++ {
			if i > 0 && g.config.Delay > 0 {
				timer := time.NewTimer(g.config.Delay)
				select {
				case <-ctx.Done():
					timer.Stop()

					return
				case <-timer.C:
				}
			}

			if ctx.Err() != nil {
				return
			}

			if !yield(walk.next(), nil) {
				return
			}
		}
	}
}

// Generate returns config.Count bars. The same seed always yields the same path.
func Generate(config GeneratorConfig) []types.PriceBar {
	walk := newRandomWalk(config)
	bars := make([]types.PriceBar, config.Count)

	for i := range bars {
		bars[i] = walk.next()
	}

	return bars
}

type randomWalk struct {
	config GeneratorConfig
	rng    *rand.Rand
	price  float64
	time   time.Time
}

func newRandomWalk(config GeneratorConfig) *randomWalk {
	return &randomWalk{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
		price:  config.InitialPrice,
		time:   config.StartTime,
	}
}

func (w *randomWalk) next() types.PriceBar {
	open := w.price

	// Box-Muller transform for a standard normal draw
	u1 := 1 - w.rng.Float64()
	u2 := w.rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	closePrice := open * (1 + w.config.Trend + w.config.Volatility*z)
	if closePrice <= 0 {
		closePrice = open * 0.99
	}

	highExtension := w.rng.Float64() * w.config.Volatility * open * 0.5
	lowExtension := w.rng.Float64() * w.config.Volatility * open * 0.5

	high := math.Max(open, closePrice) + highExtension
	low := math.Min(open, closePrice) - lowExtension
	if low <= 0 {
		low = math.Min(open, closePrice) * 0.99
	}

	volume := w.config.VolumeBase * (1 + (w.rng.Float64()*2-1)*w.config.VolumeVariance)
	if volume < 0 {
		volume = w.config.VolumeBase * 0.1
	}

	bar := types.PriceBar{
		Time:   w.time,
		Symbol: w.config.Symbol,
		Open:   roundToDecimals(open, 4),
		High:   roundToDecimals(high, 4),
		Low:    roundToDecimals(low, 4),
		Close:  roundToDecimals(closePrice, 4),
		Volume: roundToDecimals(volume, 2),
	}

	// the next candle opens at the rounded close
	w.price = bar.Close
	w.time = w.time.Add(w.config.Interval)

	return bar
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
