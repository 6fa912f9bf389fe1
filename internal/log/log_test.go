package log

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-autotrader/internal/logger"
	"github.com/rxtech-lab/argo-autotrader/internal/types"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type SinkTestSuite struct {
	suite.Suite
}

func TestSinkSuite(t *testing.T) {
	suite.Run(t, new(SinkTestSuite))
}

func (suite *SinkTestSuite) TestMemorySinkKeepsOrder() {
	sink := NewMemorySink(0)
	sink.Record(Event{Kind: EventKindTick, Message: "first"})
	sink.Record(Event{Kind: EventKindRisk, Message: "second"})

	events := sink.Events()
	suite.Len(events, 2)
	suite.Equal("first", events[0].Message)
	suite.Equal("second", events[1].Message)
}

func (suite *SinkTestSuite) TestMemorySinkCapacity() {
	sink := NewMemorySink(2)
	for _, msg := range []string{"a", "b", "c"} {
		sink.Record(Event{Kind: EventKindTick, Message: msg})
	}

	events := sink.Events()
	suite.Len(events, 2)
	suite.Equal("b", events[0].Message)
	suite.Equal("c", events[1].Message)
}

func (suite *SinkTestSuite) TestEventsOfKind() {
	sink := NewMemorySink(0)
	sink.Record(Event{Kind: EventKindTick})
	sink.Record(Event{Kind: EventKindExecution, Message: "placed"})
	sink.Record(Event{Kind: EventKindTick})

	suite.Len(sink.EventsOfKind(EventKindTick), 2)
	suite.Len(sink.EventsOfKind(EventKindExecution), 1)
	suite.Empty(sink.EventsOfKind(EventKindLedger))
}

func (suite *SinkTestSuite) TestZapSinkLevels() {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(&logger.Logger{Logger: zap.New(core)})

	sink.Record(Event{Time: time.Unix(0, 0), Kind: EventKindRisk, Level: types.LogLevelWarn, Message: "halted", Symbol: "BTCUSDT", Fields: map[string]string{"reason": "daily_loss"}})
	sink.Record(Event{Kind: EventKindExecution, Level: types.LogLevelRateLimit, Message: "pacing"})
	sink.Record(Event{Kind: EventKindTick, Level: types.LogLevelDebug, Message: "tick"})
	sink.Record(Event{Kind: EventKindLedger, Message: "opened"})

	entries := logs.All()
	suite.Require().Len(entries, 4)
	suite.Equal(zapcore.WarnLevel, entries[0].Level)
	suite.Equal("daily_loss", entries[0].ContextMap()["reason"])
	suite.Equal("BTCUSDT", entries[0].ContextMap()["symbol"])
	suite.Equal(zapcore.WarnLevel, entries[1].Level)
	suite.Equal("rate_limit", entries[1].ContextMap()["level_tag"])
	suite.Equal(zapcore.DebugLevel, entries[2].Level)
	suite.Equal(zapcore.InfoLevel, entries[3].Level)
}

func (suite *SinkTestSuite) TestMultiSink() {
	a := NewMemorySink(0)
	b := NewMemorySink(0)
	multi := MultiSink{a, nil, b}

	multi.Record(Event{Kind: EventKindSession})

	suite.Len(a.Events(), 1)
	suite.Len(b.Events(), 1)
}
