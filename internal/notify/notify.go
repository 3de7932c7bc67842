// Package notify delivers one message to many recipients. Deliveries are
// independent: a failure for one recipient never stops the others and never
// fails the call.
package notify

//go:generate mockgen -source=notify.go -destination=mocks/mocks.go -package=mocks Sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/chat"
	"ledgerbot/internal/platform/metrics"
	"ledgerbot/pkg/requestcontext"
)

// Sender delivers to a single recipient.
type Sender interface {
	Send(ctx context.Context, recipient int64, msg chat.Message) error
}

type Fanout struct {
	sender   Sender
	timeout  time.Duration
	parallel int
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Fanout)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fanout) {
		f.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fanout) {
		f.metrics = m
	}
}

// WithTimeout bounds each delivery on its own.
func WithTimeout(d time.Duration) Option {
	return func(f *Fanout) {
		f.timeout = d
	}
}

// WithParallelism caps concurrent deliveries.
func WithParallelism(n int) Option {
	return func(f *Fanout) {
		f.parallel = n
	}
}

func New(sender Sender, opts ...Option) (*Fanout, error) {
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	f := &Fanout{
		sender:   sender,
		timeout:  10 * time.Second,
		parallel: 8,
		logger:   slog.Default(),
		tracer:   otel.Tracer("ledgerbot/notify"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.parallel <= 0 {
		f.parallel = 1
	}
	return f, nil
}

// Notify sends msg to every distinct recipient and returns each outcome,
// nil for success. Every recipient has an entry.
func (f *Fanout) Notify(ctx context.Context, recipients []int64, msg chat.Message) map[int64]error {
	ctx, span := f.tracer.Start(ctx, "notify.fanout",
		trace.WithAttributes(attribute.Int("recipients", len(recipients))))
	defer span.End()

	results := make(map[int64]error, len(recipients))
	var mu sync.Mutex

	// Deliveries get a context detached from cancellation so one caller
	// giving up does not cut off the rest; each still has its own timeout.
	base := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(f.parallel)
	for _, recipient := range recipients {
		mu.Lock()
		_, seen := results[recipient]
		if !seen {
			results[recipient] = nil
		}
		mu.Unlock()
		if seen {
			continue
		}

		g.Go(func() error {
			err := f.deliver(base, recipient, msg)
			mu.Lock()
			results[recipient] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range results {
		if err != nil {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, "some deliveries failed")
	}
	return results
}

func (f *Fanout) deliver(ctx context.Context, recipient int64, msg chat.Message) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	err := f.sender.Send(ctx, recipient, msg)
	if err != nil {
		f.metrics.ObserveNotification("failed")
		f.logger.WarnContext(ctx, "notification delivery failed",
			"recipient_id", recipient,
			"update_id", requestcontext.UpdateID(ctx),
			"error", err,
		)
		return err
	}
	f.metrics.ObserveNotification("delivered")
	return nil
}
