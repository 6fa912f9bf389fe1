package types

import "time"

// Position is the single open long holding.
type Position struct {
	EntryPrice float64   `yaml:"entry_price" json:"entry_price"`
	Size       float64   `yaml:"size" json:"size"`
	OpenedAt   time.Time `yaml:"opened_at" json:"opened_at"`
}

// ClosedTrade is the result of closing a Position.
type ClosedTrade struct {
	EntryPrice float64   `yaml:"entry_price" json:"entry_price"`
	ExitPrice  float64   `yaml:"exit_price" json:"exit_price"`
	Size       float64   `yaml:"size" json:"size"`
	OpenedAt   time.Time `yaml:"opened_at" json:"opened_at"`
	ClosedAt   time.Time `yaml:"closed_at" json:"closed_at"`
	// PnL is size*exit - size*entry.
	PnL float64 `yaml:"pnl" json:"pnl"`
}

// LedgerState is a snapshot of the portfolio ledger. Total value is not part
// of the snapshot because it depends on a current price.
type LedgerState struct {
	InitialBalance    float64   `yaml:"initial_balance" json:"initial_balance"`
	CashBalance       float64   `yaml:"cash_balance" json:"cash_balance"`
	Position          *Position `yaml:"position" json:"position"`
	PeakTotalValue    float64   `yaml:"peak_total_value" json:"peak_total_value"`
	RealizedPnLTotal  float64   `yaml:"realized_pnl_total" json:"realized_pnl_total"`
	TradeCount        int       `yaml:"trade_count" json:"trade_count"`
	WinningTradeCount int       `yaml:"winning_trade_count" json:"winning_trade_count"`
	MaxDrawdownPct    float64   `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
}

// PortfolioStatus is the ledger's report at a given price.
type PortfolioStatus struct {
	Price          float64 `yaml:"price" json:"price"`
	TotalValue     float64 `yaml:"total_value" json:"total_value"`
	Cash           float64 `yaml:"cash" json:"cash"`
	PositionSize   float64 `yaml:"position_size" json:"position_size"`
	EntryPrice     float64 `yaml:"entry_price" json:"entry_price"`
	PnLPercentage  float64 `yaml:"pnl_percentage" json:"pnl_percentage"`
	RealizedPnL    float64 `yaml:"realized_pnl" json:"realized_pnl"`
	TradeCount     int     `yaml:"trade_count" json:"trade_count"`
	WinRate        float64 `yaml:"win_rate" json:"win_rate"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
}
