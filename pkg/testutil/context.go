package testutil

import (
	"context"
	"io"
	"log/slog"
	"time"

	"ledgerbot/pkg/requestcontext"
)

// FixedTime is the clock most tests pin requests to.
var FixedTime = time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)

// RequestContext returns a context carrying requester and a pinned clock,
// as the dispatcher would build for an inbound update.
func RequestContext(requester int64) context.Context {
	ctx := requestcontext.WithRequester(context.Background(), requester)
	ctx = requestcontext.WithUpdateID(ctx, "test-update")
	return requestcontext.WithTime(ctx, FixedTime)
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
