package worker

import (
	"context"
	"log/slog"

	audit "ledgerbot/pkg/platform/audit"
)

// Worker consumes audit events from a channel and appends them to a store.
// A failed append is logged and the worker moves on; audit delivery never
// blocks the bot.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until it is closed, appending each event under ctx.
// Only closing the inbox stops it; a cancelled ctx makes the remaining
// appends fail fast and be logged.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.store.Append(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "failed to append audit event",
				"action", event.Action,
				"requester_id", event.RequesterID,
				"error", err,
			)
		}
	}
}
