package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/tournament-ranking/brackets"
)

// Revalidator is told which display paths went stale after a mutation. It
// never affects the outcome of the mutation itself.
type Revalidator interface {
	Revalidate(ctx context.Context, path string)
}

type hubRevalidator struct {
	hub    *brackets.Hub
	logger *slog.Logger
}

// NewHubRevalidator pushes revalidation notices to websocket clients. Rooms are
// named after the display path they watch.
func NewHubRevalidator(hub *brackets.Hub, logger *slog.Logger) Revalidator {
	return &hubRevalidator{hub: hub, logger: logger}
}

func (r *hubRevalidator) Revalidate(ctx context.Context, path string) {
	if r.hub == nil {
		return
	}
	r.hub.BroadcastToRoom(path, brackets.WebSocketMessage{
		Type:    "REVALIDATE",
		Payload: map[string]string{"path": path},
		RoomID:  path,
	})
	r.logger.DebugContext(ctx, "revalidation published", slog.String("path", path))
}

type noopRevalidator struct{}

func (noopRevalidator) Revalidate(context.Context, string) {}

func revalidatorOrNoop(r Revalidator) Revalidator {
	if r == nil {
		return noopRevalidator{}
	}
	return r
}
