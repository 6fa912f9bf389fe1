package log

import (
	"sync"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"go.uber.org/zap"
)

// EventKind names the pipeline stage that produced an Event.
type EventKind string

const (
	EventKindTick      EventKind = "tick"
	EventKindSignal    EventKind = "signal"
	EventKindRisk      EventKind = "risk"
	EventKindLedger    EventKind = "ledger"
	EventKindExecution EventKind = "execution"
	EventKindSession   EventKind = "session"
)

// Event is a single diagnostic record.
type Event struct {
	// Time is the market data time the event refers to.
	Time   time.Time
	Kind   EventKind
	Level  types.LogLevel
	Symbol string
	// Message is a short human-readable description.
	Message string
	// Fields contains optional structured key-value data.
	Fields map[string]string
}

// Sink receives diagnostic events. Components are handed a Sink explicitly
// instead of writing to process-wide state.
type Sink interface {
	Record(event Event)
}

// ZapSink forwards events to a zap logger.
type ZapSink struct {
	logger *logger.Logger
}

func NewZapSink(l *logger.Logger) *ZapSink {
	return &ZapSink{logger: l}
}

func (s *ZapSink) Record(event Event) {
	fields := make([]zap.Field, 0, len(event.Fields)+3)
	fields = append(fields,
		zap.String("kind", string(event.Kind)),
		zap.Time("event_time", event.Time),
	)

	if event.Symbol != "" {
		fields = append(fields, zap.String("symbol", event.Symbol))
	}

	for k, v := range event.Fields {
		fields = append(fields, zap.String(k, v))
	}

	switch event.Level {
	case types.LogLevelDebug:
		s.logger.Debug(event.Message, fields...)
	case types.LogLevelWarn, types.LogLevelRateLimit:
		s.logger.Warn(event.Message, append(fields, zap.String("level_tag", string(event.Level)))...)
	case types.LogLevelError:
		s.logger.Error(event.Message, fields...)
	default:
		s.logger.Info(event.Message, fields...)
	}
}

// MemorySink keeps the most recent events in memory.
// A capacity of 0 keeps everything.
type MemorySink struct {
	mu       sync.Mutex
	events   []Event
	capacity int
}

func NewMemorySink(capacity int) *MemorySink {
	return &MemorySink{capacity: capacity}
}

func (s *MemorySink) Record(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	if s.capacity > 0 && len(s.events) > s.capacity {
		s.events = s.events[len(s.events)-s.capacity:]
	}
}

// Events returns a copy of the recorded events, oldest first.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)

	return out
}

// EventsOfKind returns the recorded events of one kind.
func (s *MemorySink) EventsOfKind(kind EventKind) []Event {
	var out []Event

	for _, e := range s.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}

// MultiSink fans every event out to each sink.
type MultiSink []Sink

func (m MultiSink) Record(event Event) {
	for _, s := range m {
		if s != nil {
			s.Record(event)
		}
	}
}

// NopSink drops events.
type NopSink struct{}

func (NopSink) Record(Event) {}

var (
	_ Sink = (*ZapSink)(nil)
	_ Sink = (*MemorySink)(nil)
	_ Sink = MultiSink(nil)
	_ Sink = NopSink{}
)
