package marketdata

import (
	"context"
	"iter"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
)

// Source produces price bars in time order.
//
// Stream returns an iterator over (bar, error) pairs. A non-nil error
// describes a bad observation; consumers may skip it and keep iterating.
// Iteration ends when the source is exhausted or ctx is cancelled.
type Source interface {
	Stream(ctx context.Context) iter.Seq2[types.PriceBar, error]
}

// ReplaySource replays a fixed slice of bars.
type ReplaySource struct {
	bars []types.PriceBar
}

func NewReplaySource(bars []types.PriceBar) *ReplaySource {
	return &ReplaySource{bars: bars}
}

func (r *ReplaySource) Stream(ctx context.Context) iter.Seq2[types.PriceBar, error] {
	return func(yield func(types.PriceBar, error) bool) {
		for _, bar := range r.bars {
			if ctx.Err() != nil {
				return
			}

			if !yield(bar, nil) {
				return
			}
		}
	}
}

// Len returns the number of bars the source will replay.
func (r *ReplaySource) Len() int {
	return len(r.bars)
}

// Collect drains a source into a slice, stopping at the first error.
func Collect(ctx context.Context, source Source) ([]types.PriceBar, error) {
	var bars []types.PriceBar

	for bar, err := range source.Stream(ctx) {
		if err != nil {
			return bars, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

var (
	_ Source = (*ReplaySource)(nil)
	_ Source = (*GeneratorSource)(nil)
	_ Source = (*DuckDBSource)(nil)
	_ Source = (*BinanceSource)(nil)
)
