/*

Notification sink for typed state-transition records. Emission is
fire-and-forget: the engine never blocks on or retries delivery, and a
failing sink must not fail the operation that emitted the record.

*/

package events

import (
	"github.com/rs/zerolog"

	"github.com/vaultguard/gvm/internal/logger"
	"github.com/vaultguard/gvm/internal/types"
)

// Sink receives typed event records.
type Sink interface {
	Publish(event types.Event)
}

// LogSink writes every event to the structured log.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink logging under the given component name.
func NewLogSink(component string) *LogSink {
	return &LogSink{logger: logger.GetForComponent(component)}
}

func (s *LogSink) Publish(event types.Event) {
	s.logger.Info().
		Str("event", event.EventName()).
		Interface("payload", event).
		Msg("Event emitted")
}

// MultiSink fans an event out to several sinks in order.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks; nil entries are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	ms := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			ms.sinks = append(ms.sinks, s)
		}
	}
	return ms
}

func (m *MultiSink) Publish(event types.Event) {
	for _, s := range m.sinks {
		s.Publish(event)
	}
}

// NullSink discards every event.
type NullSink struct{}

func (NullSink) Publish(types.Event) {}
