package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBSourceConfig selects bars from a Parquet or CSV file. The file must
// have time, symbol, open, high, low, close and volume columns.
type DuckDBSourceConfig struct {
	Path   string
	Symbol optional.Option[string]
	Start  optional.Option[time.Time]
	End    optional.Option[time.Time]
}

// DuckDBSource reads historical bars through an in-memory DuckDB instance.
type DuckDBSource struct {
	config DuckDBSourceConfig
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewDuckDBSource(config DuckDBSourceConfig, l *logger.Logger) (*DuckDBSource, error) {
	if config.Path == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "data path is required")
	}

	if l == nil {
		l = logger.NewNop()
	}

	return &DuckDBSource{
		config: config,
		logger: l,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// table returns the DuckDB table function reading the configured file.
func (d *DuckDBSource) table() string {
	escaped := strings.ReplaceAll(d.config.Path, "'", "''")

	switch strings.ToLower(filepath.Ext(d.config.Path)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto('%s')", escaped)
	default:
		return fmt.Sprintf("read_parquet('%s')", escaped)
	}
}

func (d *DuckDBSource) filter(query squirrel.SelectBuilder) squirrel.SelectBuilder {
	if d.config.Symbol.IsSome() {
		query = query.Where(squirrel.Eq{"symbol": d.config.Symbol.Unwrap()})
	}

	if d.config.Start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": d.config.Start.Unwrap()})
	}

	if d.config.End.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": d.config.End.Unwrap()})
	}

	return query
}

// Count returns the number of bars Stream will yield.
func (d *DuckDBSource) Count(ctx context.Context) (int, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataFetch, "failed to open duckdb", err)
	}
	defer db.Close()

	query, args, err := d.filter(d.sq.Select("COUNT(*)").From(d.table())).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeMarketDataFetch, "failed to build count query", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeMarketDataFetch, err, "failed to count bars in %s", d.config.Path)
	}

	return count, nil
}

func (d *DuckDBSource) Stream(ctx context.Context) iter.Seq2[types.PriceBar, error] {
	return func(yield func(types.PriceBar, error) bool) {
		db, err := sql.Open("duckdb", "")
		if err != nil {
			yield(types.PriceBar{}, errors.Wrap(errors.ErrCodeMarketDataFetch, "failed to open duckdb", err))

			return
		}
		defer db.Close()

		query, args, err := d.filter(
			d.sq.Select("time", "symbol", "open", "high", "low", "close", "volume").From(d.table()),
		).OrderBy("time ASC").ToSql()
		if err != nil {
			yield(types.PriceBar{}, errors.Wrap(errors.ErrCodeMarketDataFetch, "failed to build bar query", err))

			return
		}

		d.logger.Debug("Reading bars from DuckDB", zap.String("path", d.config.Path), zap.String("query", query))

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(types.PriceBar{}, errors.Wrapf(errors.ErrCodeMarketDataFetch, err, "failed to read bars from %s", d.config.Path))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var bar types.PriceBar

			if err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
				if !yield(types.PriceBar{}, errors.Wrap(errors.ErrCodeMarketDataFetch, "failed to scan bar", err)) {
					return
				}

				continue
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil && ctx.Err() == nil {
			yield(types.PriceBar{}, errors.Wrap(errors.ErrCodeMarketDataFetch, "error while iterating bars", err))
		}
	}
}
