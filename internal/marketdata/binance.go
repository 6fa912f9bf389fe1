package marketdata

import (
	"context"
	"iter"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// BinanceWsKline is the subset of a websocket kline the feed needs.
type BinanceWsKline struct {
	StartTime int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	IsFinal   bool
}

type BinanceWsKlineEvent struct {
	Symbol string
	Kline  BinanceWsKline
}

type WsKlineHandler func(event *BinanceWsKlineEvent)

type WsErrorHandler func(err error)

// BinanceWebSocketService abstracts the kline websocket for testing.
type BinanceWebSocketService interface {
	WsKlineServe(symbol string, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (doneC chan struct{}, stopC chan struct{}, err error)
}

type realBinanceWebSocketService struct{}

func (realBinanceWebSocketService) WsKlineServe(symbol string, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsKlineServe(symbol, interval, func(event *binance.WsKlineEvent) {
		handler(&BinanceWsKlineEvent{
			Symbol: event.Symbol,
			Kline: BinanceWsKline{
				StartTime: event.Kline.StartTime,
				Open:      event.Kline.Open,
				High:      event.Kline.High,
				Low:       event.Kline.Low,
				Close:     event.Kline.Close,
				Volume:    event.Kline.Volume,
				IsFinal:   event.Kline.IsFinal,
			},
		})
	}, binance.ErrHandler(errHandler))
}

// BinanceSource streams finalized klines for one symbol.
type BinanceSource struct {
	ws       BinanceWebSocketService
	symbol   string
	interval string
	logger   *logger.Logger
}

func NewBinanceSource(symbol string, interval string, l *logger.Logger) *BinanceSource {
	return NewBinanceSourceWithWebSocket(realBinanceWebSocketService{}, symbol, interval, l)
}

// NewBinanceSourceWithWebSocket is used to inject a websocket service in tests.
func NewBinanceSourceWithWebSocket(ws BinanceWebSocketService, symbol string, interval string, l *logger.Logger) *BinanceSource {
	if l == nil {
		l = logger.NewNop()
	}

	return &BinanceSource{
		ws:       ws,
		symbol:   symbol,
		interval: interval,
		logger:   l,
	}
}

func (b *BinanceSource) Stream(ctx context.Context) iter.Seq2[types.PriceBar, error] {
	return func(yield func(types.PriceBar, error) bool) {
		events := make(chan *BinanceWsKlineEvent, 64)
		errs := make(chan error, 8)

		doneC, stopC, err := b.ws.WsKlineServe(b.symbol, b.interval,
			func(event *BinanceWsKlineEvent) {
				// Only finalized candles are bars; in-progress updates are dropped.
				if !event.Kline.IsFinal {
					return
				}

				select {
				case events <- event:
				case <-ctx.Done():
				}
			},
			func(err error) {
				select {
				case errs <- err:
				case <-ctx.Done():
				}
			},
		)
		if err != nil {
			yield(types.PriceBar{}, errors.Wrap(errors.ErrCodeMarketDataStream, "failed to start kline stream", err))

			return
		}
		defer close(stopC)

		b.logger.Info("Kline stream started", zap.String("symbol", b.symbol), zap.String("interval", b.interval))

		for {
			select {
			case <-ctx.Done():
				return
			case <-doneC:
				return
			case err := <-errs:
				if !yield(types.PriceBar{}, errors.Wrap(errors.ErrCodeMarketDataStream, "kline stream error", err)) {
					return
				}
			case event := <-events:
				bar, err := convertKline(event)
				if !yield(bar, err) {
					return
				}
			}
		}
	}
}

func convertKline(event *BinanceWsKlineEvent) (types.PriceBar, error) {
	values := make([]float64, 5)

	for i, raw := range []string{event.Kline.Open, event.Kline.High, event.Kline.Low, event.Kline.Close, event.Kline.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.PriceBar{}, errors.Wrapf(errors.ErrCodeMarketDataStream, err, "invalid kline value %q", raw)
		}

		values[i] = v
	}

	return types.PriceBar{
		Time:   time.UnixMilli(event.Kline.StartTime).UTC(),
		Symbol: event.Symbol,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
