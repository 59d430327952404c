package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vaultguard/gvm/internal/logger"
	"github.com/vaultguard/gvm/internal/types"
)

// EventJournal persists engine events to the engine_events table. It
// satisfies the engine's event sink interface; a storage failure is logged
// and swallowed so the originating operation is never failed by telemetry.
type EventJournal struct {
	logger zerolog.Logger
}

func NewEventJournal() *EventJournal {
	return &EventJournal{logger: logger.GetForComponent("event_journal")}
}

func (j *EventJournal) Publish(event types.Event) {
	if err := insertEvent(event); err != nil {
		j.logger.Error().Err(err).Str("event", event.EventName()).Msg("Failed to journal event")
	}
}

func insertEvent(event types.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `INSERT INTO engine_events (event_name, payload) VALUES ($1, $2);`
	if _, err := DB.Exec(query, event.EventName(), payload); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}
