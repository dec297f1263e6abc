package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
)

// LogEmitter writes events to the structured log. Used in development and as
// a fallback when no Kafka brokers are configured.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an emitter writing to the given logger.
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// Emit logs one event at info level.
func (e *LogEmitter) Emit(_ context.Context, event Event) error {
	items, err := json.Marshal(event.Items)
	if err != nil {
		return err
	}
	e.logger.Info("cart event",
		slog.String("event", string(event.Name)),
		slog.String("id", event.ID),
		slog.String("items", string(items)),
	)
	return nil
}
