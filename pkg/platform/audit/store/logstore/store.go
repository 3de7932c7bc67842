// Package logstore writes audit events to a structured logger. It is the
// fallback sink when no broker is configured.
package logstore

import (
	"context"
	"log/slog"

	audit "ledgerbot/pkg/platform/audit"
)

type Store struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	s.logger.InfoContext(ctx, "audit",
		"event_id", event.ID,
		"category", string(event.Category),
		"action", event.Action,
		"requester_id", event.RequesterID,
		"actor_id", event.ActorID,
		"subject", event.Subject,
		"decision", event.Decision,
		"reason", event.Reason,
		"update_id", event.UpdateID,
		"timestamp", event.Timestamp,
	)
	return nil
}
