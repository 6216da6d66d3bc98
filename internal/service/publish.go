package service

import (
	"context"
	"log/slog"
	"time"

	"rostrum/internal/events"
	"rostrum/internal/observability"
)

// publishers fans committed debate events out to every configured sink.
// Failures are logged; the change they describe is already committed.
type publishers []events.Publisher

func (p publishers) emit(ctx context.Context, event events.DebateEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	for _, pub := range p {
		if pub == nil {
			continue
		}
		if err := pub.Publish(ctx, event); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "debate event not published",
				slog.String("type", event.Type),
				slog.Uint64("debate_id", uint64(event.DebateID)),
				slog.String("error", err.Error()),
			)
		}
	}
}
