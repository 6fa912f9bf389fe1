package types

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	// LogLevelRateLimit marks pacing waits imposed by exchange rate limits.
	LogLevelRateLimit LogLevel = "rate_limit"
)
