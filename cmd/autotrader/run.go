package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/config"
	"github.com/rxtech-lab/argo-autotrader/internal/exchange"
	"github.com/rxtech-lab/argo-autotrader/internal/execution"
	"github.com/rxtech-lab/argo-autotrader/internal/indicator"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/log"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/metrics"
	"github.com/rxtech-lab/argo-autotrader/internal/portfolio"
	"github.com/rxtech-lab/argo-autotrader/internal/risk"
	"github.com/rxtech-lab/argo-autotrader/internal/server"
	"github.com/rxtech-lab/argo-autotrader/internal/strategy"
	"github.com/rxtech-lab/argo-autotrader/internal/trading/engine"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Trade live or on paper and serve status on --listen",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "exchange",
				Aliases: []string{"e"},
				Usage:   fmt.Sprintf("Override the configured exchange (%v)", exchange.GetSupportedEndpoints()),
			},
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Address of the status server",
				Value:   ":8080",
			},
			&cli.StringFlag{
				Name:  "interval",
				Usage: "Binance kline interval",
				Value: "1m",
			},
			&cli.DurationFlag{
				Name:  "tick",
				Usage: "Wall-clock delay between generated bars on the paper exchange",
				Value: time.Second,
			},
			&cli.StringFlag{
				Name:  "journal-dir",
				Usage: "Export the order and trade journal as Parquet into this directory on exit",
			},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if name := cmd.String("exchange"); name != "" {
		cfg.Exchange = exchange.EndpointType(name)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Sync() //nolint:errcheck

	sink := log.NewZapSink(l)
	m := metrics.New()

	j, err := journal.NewJournal(l)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	endpoint, err := exchange.NewEndpoint(cfg.Exchange, cfg.Symbol, cfg.EndpointConfig(), l)
	if err != nil {
		return fmt.Errorf("failed to create exchange endpoint: %w", err)
	}

	eng, err := buildEngine(cfg, endpoint, j, m, sink, l)
	if err != nil {
		return err
	}

	var source marketdata.Source
	callbacks := engine.Callbacks{}

	if paper, ok := endpoint.(*exchange.PaperExchange); ok {
		generator := cfg.GeneratorConfig(0)
		generator.StartTime = time.Now().UTC().Truncate(cfg.BarInterval)
		generator.Delay = cmd.Duration("tick")
		source = marketdata.NewGeneratorSource(generator)

		onMarketData := engine.OnMarketDataCallback(func(_ string, bar types.PriceBar) error {
			paper.SetMarkPrice(bar.Close)

			return nil
		})
		callbacks.OnMarketData = &onMarketData
	} else {
		source = marketdata.NewBinanceSource(cfg.Symbol, cmd.String("interval"), l)
	}

	onTrade := engine.OnTradeClosedCallback(func(trade types.ClosedTrade, reason string) error {
		fmt.Printf("Trade closed (%s): %.6f @ %.2f -> %.2f, pnl %.2f\n",
			reason, trade.Size, trade.EntryPrice, trade.ExitPrice, trade.PnL)

		return nil
	})
	onStop := engine.OnEngineStopCallback(func(err error) {
		if err != nil {
			fmt.Printf("Engine stopped with error: %v\n", err)
		} else {
			fmt.Println("Engine stopped")
		}
	})
	callbacks.OnTradeClosed = &onTrade
	callbacks.OnEngineStop = &onStop

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statusServer := server.New(eng, m, j, l)
	group, groupCtx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(groupCtx)

	group.Go(func() error {
		if err := statusServer.Run(runCtx, cmd.String("listen")); err != nil {
			return fmt.Errorf("status server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		// A finished stream also stops the status server.
		defer cancelRun()

		return eng.Run(runCtx, source, callbacks)
	})

	err = group.Wait()
	cancelRun()

	if dir := cmd.String("journal-dir"); dir != "" {
		if exportErr := j.Export(dir); exportErr != nil {
			l.Error("Failed to export journal", zap.Error(exportErr))
		}
	}

	return err
}

// buildEngine wires the pipeline stages in the order a tick flows through
// them.
func buildEngine(cfg *config.Config, endpoint exchange.Endpoint, j engine.Journal, m *metrics.Metrics, sink log.Sink, l *logger.Logger) (*engine.Engine, error) {
	indicators, err := indicator.NewEngine(cfg.IndicatorConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create indicator engine: %w", err)
	}

	ledger, err := portfolio.NewLedger(cfg.InitialBalance, sink, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger: %w", err)
	}

	riskManager := risk.NewManager(cfg.RiskConfig(), cfg.CostModelConfig(), sink, l)
	router := execution.NewRouter(endpoint, cfg.RouterConfig(), sink, l)
	combined := strategy.NewCombinedStrategy(indicators, cfg.Thresholds())

	return engine.New(cfg.EngineConfig(), combined, riskManager, ledger, router,
		engine.WithJournal(j),
		engine.WithMetrics(m),
		engine.WithSink(sink),
		engine.WithLogger(l),
	)
}
