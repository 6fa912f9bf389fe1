package types

type IndicatorType string

const (
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
	IndicatorTypeGChannel       IndicatorType = "g_channel"
)

// ChannelTag is the discrete signal emitted by the G-Channel.
type ChannelTag string

const (
	ChannelTagBuy  ChannelTag = "buy"
	ChannelTagSell ChannelTag = "sell"
	ChannelTagHold ChannelTag = "hold"
)

// BandSeries holds the volatility band lines, each the length of the input.
type BandSeries struct {
	Lower  []float64
	Middle []float64
	Upper  []float64
}

// ChannelSeries holds the G-Channel lines, each the length of the input.
type ChannelSeries struct {
	Lower []float64
	Upper []float64
	Avg   []float64
}

// IndicatorSnapshot is every indicator output for one visible history.
type IndicatorSnapshot struct {
	EMA           []float64
	RSI           []float64
	Bands         BandSeries
	Channel       ChannelSeries
	ChannelSignal ChannelTag
}

// Len returns the length of the underlying history, or 0 for an empty snapshot.
func (s IndicatorSnapshot) Len() int {
	return len(s.EMA)
}

// Last returns the most recent value of series. It panics on an empty series.
func Last(series []float64) float64 {
	return series[len(series)-1]
}
