// Package requestcontext provides transport-independent accessors for values
// scoped to one inbound chat update.
//
// The bot dispatcher sets them once per update; services read them for
// logging and audit enrichment without importing the chat transport.
//
//	ctx = requestcontext.WithRequester(ctx, senderID)
//	ctx = requestcontext.WithUpdateID(ctx, uuid.NewString())
//
// Tests inject a fixed clock:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	requesterKey   struct{}
	updateIDKey    struct{}
	requestTimeKey struct{}
)

// Requester returns the chat identity that triggered the current update, or
// zero if unset.
func Requester(ctx context.Context) int64 {
	if id, ok := ctx.Value(requesterKey{}).(int64); ok {
		return id
	}
	return 0
}

func WithRequester(ctx context.Context, requesterID int64) context.Context {
	return context.WithValue(ctx, requesterKey{}, requesterID)
}

// UpdateID returns the correlation id assigned to the current update.
func UpdateID(ctx context.Context) string {
	if id, ok := ctx.Value(updateIDKey{}).(string); ok {
		return id
	}
	return ""
}

func WithUpdateID(ctx context.Context, updateID string) context.Context {
	return context.WithValue(ctx, updateIDKey{}, updateID)
}

// Now returns the update-scoped time, falling back to time.Now() for
// background work (startup broadcast, workers).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the clock for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
