// Package service holds the business rules between HTTP handlers and repositories.
package service

import (
	"context"
	"log/slog"

	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/notifications"
)

// EventPublisher announces content changes to the live feed.
type EventPublisher interface {
	PublishContent(ctx context.Context, ev notifications.ContentEvent) error
}

// publish sends ev if a publisher is configured. Failures never fail the write.
func publish(ctx context.Context, events EventPublisher, ev notifications.ContentEvent) {
	if events == nil {
		return
	}
	if err := events.PublishContent(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "content event not published",
			slog.String("event_type", ev.Type), slog.String("error", err.Error()))
	}
}
