package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidInput  ErrorCode = 100
	ErrCodeInvalidConfig ErrorCode = 101

	// Ledger errors (200-299)
	ErrCodePositionExists    ErrorCode = 200
	ErrCodeNoPosition        ErrorCode = 201
	ErrCodeInsufficientFunds ErrorCode = 202

	// Risk errors (300-399)
	ErrCodeRiskHalted ErrorCode = 300

	// Execution errors (400-499)
	ErrCodeOrderPlacementFailed ErrorCode = 400
	ErrCodeOrderCancelFailed    ErrorCode = 401
	ErrCodeOrderNotFound        ErrorCode = 402
	ErrCodeOrderNotOpen         ErrorCode = 403
	ErrCodeOrderFetchFailed     ErrorCode = 404

	// Market data errors (500-599)
	ErrCodeMarketDataFetch  ErrorCode = 500
	ErrCodeMarketDataStream ErrorCode = 501

	// Journal errors (600-699)
	ErrCodeJournalWrite ErrorCode = 600
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:              "Unknown",
	ErrCodeInvalidInput:         "InvalidInput",
	ErrCodeInvalidConfig:        "InvalidConfig",
	ErrCodePositionExists:       "PositionExists",
	ErrCodeNoPosition:           "NoPosition",
	ErrCodeInsufficientFunds:    "InsufficientFunds",
	ErrCodeRiskHalted:           "RiskHalted",
	ErrCodeOrderPlacementFailed: "OrderPlacementFailed",
	ErrCodeOrderCancelFailed:    "OrderCancelFailed",
	ErrCodeOrderNotFound:        "OrderNotFound",
	ErrCodeOrderNotOpen:         "OrderNotOpen",
	ErrCodeOrderFetchFailed:     "OrderFetchFailed",
	ErrCodeMarketDataFetch:      "MarketDataFetch",
	ErrCodeMarketDataStream:     "MarketDataStream",
	ErrCodeJournalWrite:         "JournalWrite",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}

	return "Unknown"
}
