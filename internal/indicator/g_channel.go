package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
)

// GChannel is a two-line ratchet channel. The upper line ratchets down toward
// price and the lower line ratchets up, each by (upper-lower)/length per step.
type GChannel struct {
	length int
}

// NewGChannel creates a G-Channel with the default length of 10.
func NewGChannel() *GChannel {
	return &GChannel{
		length: 10,
	}
}

func (g *GChannel) Name() types.IndicatorType {
	return types.IndicatorTypeGChannel
}

// Config configures the channel. Expected parameters: length (int).
func (g *GChannel) Config(params ...any) error {
	if len(params) != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "Config expects 1 parameter: length (int)")
	}

	length, err := parsePeriod(params, "length")
	if err != nil {
		return err
	}

	g.length = length

	return nil
}

// Calculate returns the channel lines for closes and the signal tag at the
// most recent close.
func (g *GChannel) Calculate(closes []float64) (types.ChannelSeries, types.ChannelTag, error) {
	if err := requireInput(closes, g.Name()); err != nil {
		return types.ChannelSeries{}, types.ChannelTagHold, err
	}

	n := len(closes)
	channel := types.ChannelSeries{
		Lower: make([]float64, n),
		Upper: make([]float64, n),
		Avg:   make([]float64, n),
	}

	channel.Upper[0] = closes[0]
	channel.Lower[0] = closes[0]
	channel.Avg[0] = closes[0]

	length := float64(g.length)

	for i := 1; i < n; i++ {
		width := (channel.Upper[i-1] - channel.Lower[i-1]) / length
		channel.Upper[i] = math.Max(closes[i], channel.Upper[i-1]) - width
		channel.Lower[i] = math.Min(closes[i], channel.Lower[i-1]) + width
		channel.Avg[i] = (channel.Upper[i] + channel.Lower[i]) / 2
	}

	return channel, crossover(channel, closes), nil
}

// crossover compares the last two points. A buy is the lower line moving from
// below price to above it; a sell is the upper line moving from above price
// to below it.
func crossover(channel types.ChannelSeries, closes []float64) types.ChannelTag {
	n := len(closes)
	if n < 2 {
		return types.ChannelTagHold
	}

	prev, last := n-2, n-1

	if channel.Lower[prev] < closes[prev] && channel.Lower[last] > closes[last] {
		return types.ChannelTagBuy
	}

	if channel.Upper[prev] > closes[prev] && channel.Upper[last] < closes[last] {
		return types.ChannelTagSell
	}

	return types.ChannelTagHold
}
