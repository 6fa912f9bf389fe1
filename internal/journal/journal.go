package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/rxtech-lab/argo-autotrader/pkg/errors"
	"go.uber.org/zap"
)

// OrderRecord is one child order as stored in the journal.
type OrderRecord struct {
	ID               string                   `yaml:"id" json:"id"`
	ExecutionOrderID string                   `yaml:"execution_order_id" json:"execution_order_id"`
	Symbol           string                   `yaml:"symbol" json:"symbol"`
	Side             types.Side               `yaml:"side" json:"side"`
	ChildIndex       int                      `yaml:"child_index" json:"child_index"`
	ExchangeOrderID  string                   `yaml:"exchange_order_id" json:"exchange_order_id"`
	Size             float64                  `yaml:"size" json:"size"`
	Price            optional.Option[float64] `yaml:"price" json:"price"`
	Status           types.OrderStatus        `yaml:"status" json:"status"`
	FilledSize       float64                  `yaml:"filled_size" json:"filled_size"`
	PlacedAt         time.Time                `yaml:"placed_at" json:"placed_at"`
	Error            string                   `yaml:"error,omitempty" json:"error,omitempty"`
}

// TradeRecord is one closed round trip as stored in the journal.
type TradeRecord struct {
	ID     string            `yaml:"id" json:"id"`
	Symbol string            `yaml:"symbol" json:"symbol"`
	Reason string            `yaml:"reason" json:"reason"`
	Trade  types.ClosedTrade `yaml:"trade" json:"trade"`
}

// Summary aggregates the trade table.
type Summary struct {
	TradeCount    int     `yaml:"trade_count" json:"trade_count"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	TotalPnL      float64 `yaml:"total_pnl" json:"total_pnl"`
}

// Journal records routed orders and closed trades in an in-memory DuckDB
// database. Nothing is reloaded on start; Export writes a Parquet copy.
type Journal struct {
	db     *sql.DB
	sq     squirrel.StatementBuilderType
	mu     sync.Mutex
	logger *logger.Logger
}

func NewJournal(l *logger.Logger) (*Journal, error) {
	if l == nil {
		l = logger.NewNop()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalWrite, "failed to open DuckDB connection", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT,
			execution_order_id TEXT,
			symbol TEXT,
			side TEXT,
			child_index INTEGER,
			exchange_order_id TEXT,
			size DOUBLE,
			price DOUBLE,
			status TEXT,
			filled_size DOUBLE,
			placed_at TIMESTAMP,
			error TEXT
		);
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT,
			symbol TEXT,
			reason TEXT,
			entry_price DOUBLE,
			exit_price DOUBLE,
			size DOUBLE,
			opened_at TIMESTAMP,
			closed_at TIMESTAMP,
			pnl DOUBLE
		);
	`)
	if err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeJournalWrite, "failed to create journal tables", err)
	}

	return &Journal{
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: l,
	}, nil
}

// RecordExecution stores every child order of report, including failed ones.
func (j *Journal) RecordExecution(ctx context.Context, report types.ExecutionReport) error {
	if len(report.Order.ChildOrders) == 0 {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	insert := j.sq.Insert("orders").Columns(
		"id", "execution_order_id", "symbol", "side", "child_index", "exchange_order_id",
		"size", "price", "status", "filled_size", "placed_at", "error",
	)

	for i, child := range report.Order.ChildOrders {
		var price any
		if child.Price.IsSome() {
			price = child.Price.Unwrap()
		}

		var errText string
		if child.Err != nil {
			errText = child.Err.Error()
		}

		insert = insert.Values(
			uuid.New().String(), report.Order.ID, report.Order.Symbol, string(report.Order.Side), i,
			child.ExchangeOrderID, child.Size, price, string(child.Status), child.FilledSize,
			child.PlacedAt, errText,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWrite, "failed to build order insert", err)
	}

	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWrite, "failed to insert orders", err)
	}

	return nil
}

// RecordTrade stores a closed round trip with the reason it was closed.
func (j *Journal) RecordTrade(ctx context.Context, symbol string, trade types.ClosedTrade, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	query, args, err := j.sq.Insert("trades").
		Columns("id", "symbol", "reason", "entry_price", "exit_price", "size", "opened_at", "closed_at", "pnl").
		Values(uuid.New().String(), symbol, reason, trade.EntryPrice, trade.ExitPrice, trade.Size, trade.OpenedAt, trade.ClosedAt, trade.PnL).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeJournalWrite, "failed to build trade insert", err)
	}

	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWrite, "failed to insert trade", err)
	}

	j.logger.Debug("Trade journaled", zap.String("symbol", symbol), zap.String("reason", reason), zap.Float64("pnl", trade.PnL))

	return nil
}

// Orders returns the stored child orders, optionally limited to one execution order.
func (j *Journal) Orders(ctx context.Context, executionOrderID optional.Option[string]) ([]OrderRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	builder := j.sq.Select(
		"id", "execution_order_id", "symbol", "side", "child_index", "exchange_order_id",
		"size", "price", "status", "filled_size", "placed_at", "error",
	).From("orders").OrderBy("placed_at ASC", "child_index ASC")

	if executionOrderID.IsSome() {
		builder = builder.Where(squirrel.Eq{"execution_order_id": executionOrderID.Unwrap()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var records []OrderRecord

	for rows.Next() {
		var (
			record OrderRecord
			side   string
			status string
			price  sql.NullFloat64
		)

		if err := rows.Scan(&record.ID, &record.ExecutionOrderID, &record.Symbol, &side, &record.ChildIndex,
			&record.ExchangeOrderID, &record.Size, &price, &status, &record.FilledSize, &record.PlacedAt, &record.Error); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		record.Side = types.Side(side)
		record.Status = types.OrderStatus(status)

		if price.Valid {
			record.Price = optional.Some(price.Float64)
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// Trades returns the stored trades ordered by close time.
func (j *Journal) Trades(ctx context.Context) ([]TradeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	query, args, err := j.sq.Select("id", "symbol", "reason", "entry_price", "exit_price", "size", "opened_at", "closed_at", "pnl").
		From("trades").
		OrderBy("closed_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build trade query: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var records []TradeRecord

	for rows.Next() {
		var record TradeRecord

		if err := rows.Scan(&record.ID, &record.Symbol, &record.Reason, &record.Trade.EntryPrice, &record.Trade.ExitPrice,
			&record.Trade.Size, &record.Trade.OpenedAt, &record.Trade.ClosedAt, &record.Trade.PnL); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		records = append(records, record)
	}

	return records, rows.Err()
}

// Summary aggregates trade count, winners and total PnL.
func (j *Journal) Summary(ctx context.Context) (Summary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	query, args, err := j.sq.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE pnl > 0)",
		"COALESCE(SUM(pnl), 0)",
	).From("trades").ToSql()
	if err != nil {
		return Summary{}, fmt.Errorf("failed to build summary query: %w", err)
	}

	var summary Summary
	if err := j.db.QueryRowContext(ctx, query, args...).Scan(&summary.TradeCount, &summary.WinningTrades, &summary.TotalPnL); err != nil {
		return Summary{}, fmt.Errorf("failed to summarize trades: %w", err)
	}

	return summary, nil
}

// Export writes orders.parquet and trades.parquet into dir.
func (j *Journal) Export(dir string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWrite, "failed to create export directory", err)
	}

	exports := map[string]string{
		"orders": "placed_at ASC, child_index ASC",
		"trades": "closed_at ASC",
	}

	for table, order := range exports {
		path := strings.ReplaceAll(filepath.Join(dir, table+".parquet"), "'", "''")

		_, err := j.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM %s ORDER BY %s) TO '%s' (FORMAT PARQUET)`, table, order, path))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeJournalWrite, err, "failed to export %s", table)
		}
	}

	return nil
}

// Close releases database resources.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.db == nil {
		return nil
	}

	err := j.db.Close()
	j.db = nil

	if err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	return nil
}
