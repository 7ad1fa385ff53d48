// Package notify delivers user-facing notices (toasts).
package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/vikasavnish/listinghub/internal/logging"
	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/websocket"
)

const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notifier sends a notice to a user. userID is uuid.Nil for a signed-out visitor.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, n models.Notice)
}

// Hub pushes notices over the user's websocket connections.
type Hub struct {
	hub *websocket.Hub
}

func NewHub(hub *websocket.Hub) *Hub { return &Hub{hub: hub} }

func (h *Hub) Notify(_ context.Context, userID uuid.UUID, n models.Notice) {
	h.hub.SendToUser(userID, models.Message{Type: models.MessageNotice, Content: n})
}

// Log writes notices to the application log.
type Log struct {
	log logging.Logger
}

func NewLog(log logging.Logger) *Log { return &Log{log: log} }

func (l *Log) Notify(ctx context.Context, userID uuid.UUID, n models.Notice) {
	args := []any{"user_id", userID, "level", n.Level, "title", n.Title}
	if n.Message != "" {
		args = append(args, "message", n.Message)
	}
	l.log.Info(ctx, "notice", args...)
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, userID uuid.UUID, n models.Notice) {
	for _, nt := range m {
		nt.Notify(ctx, userID, n)
	}
}
