package main

import (
	"context"
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/backtest"
	"github.com/rxtech-lab/argo-autotrader/internal/journal"
	"github.com/rxtech-lab/argo-autotrader/internal/log"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/marketdata"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Replay historical or generated bars through the pipeline on the paper exchange",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Parquet or CSV file with time, symbol, open, high, low, close and volume columns. Generated bars are used when empty",
			},
			&cli.BoolFlag{
				Name:  "filter-symbol",
				Usage: "Only replay rows of the configured symbol from --data",
			},
			&cli.IntFlag{
				Name:  "bars",
				Usage: "Number of generated bars when --data is empty",
				Value: 1000,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Path of the YAML result file",
				Value:   "backtest_result.yaml",
			},
			&cli.StringFlag{
				Name:  "journal-dir",
				Usage: "Export the order and trade journal as Parquet into this directory",
			},
		},
		Action: backtestAction,
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Sync() //nolint:errcheck

	bars, err := loadBars(ctx, cmd, cfg.GeneratorConfig(int(cmd.Int("bars"))), cfg.Symbol, l)
	if err != nil {
		return err
	}

	j, err := journal.NewJournal(l)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer j.Close()

	bar := progressbar.Default(int64(len(bars)), "backtesting")
	onProgress := backtest.OnProgressCallback(func(current int, _ int) error {
		return bar.Set(current)
	})

	runner := backtest.NewRunner(*cfg,
		backtest.WithJournal(j),
		backtest.WithSink(log.NewZapSink(l)),
		backtest.WithLogger(l),
	)

	result, err := runner.Run(ctx, bars, backtest.Callbacks{OnProgress: &onProgress})
	if err != nil {
		return fmt.Errorf("backtest failed: %w", err)
	}

	_ = bar.Finish()

	output := cmd.String("output")
	if err := backtest.WriteResult(output, result); err != nil {
		return err
	}

	if dir := cmd.String("journal-dir"); dir != "" {
		if err := j.Export(dir); err != nil {
			return fmt.Errorf("failed to export journal: %w", err)
		}
	}

	fmt.Printf("\n%s %s: %d bars, %d trades, win rate %.1f%%\n",
		result.Symbol, result.Strategy, result.Bars, result.Trades, result.WinRate)
	fmt.Printf("Final value %.2f (%+.2f%%), max drawdown %.2f%%\n",
		result.FinalValue, result.PnLPercentage, result.MaxDrawdownPct)
	fmt.Printf("Result written to %s\n", output)

	return nil
}

func loadBars(ctx context.Context, cmd *cli.Command, generator marketdata.GeneratorConfig, symbol string, l *logger.Logger) ([]types.PriceBar, error) {
	path := cmd.String("data")
	if path == "" {
		return marketdata.Generate(generator), nil
	}

	sourceConfig := marketdata.DuckDBSourceConfig{
		Path:   path,
		Symbol: optional.None[string](),
	}
	if cmd.Bool("filter-symbol") {
		sourceConfig.Symbol = optional.Some(symbol)
	}

	source, err := marketdata.NewDuckDBSource(sourceConfig, l)
	if err != nil {
		return nil, err
	}

	bars, err := marketdata.Collect(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return bars, nil
}
