// Package ledger appends entries to the external spreadsheet ledger and reads
// its aggregate figures back.
//
// Nothing is logged or replayed locally: an append either reached the sheet
// or the caller is told to retry. Balance reads after an append are
// best-effort and never turn a written entry into a failure.
package ledger

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks Sheet,Directory,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dirmodels "ledgerbot/internal/directory/models"
	"ledgerbot/internal/ledger/models"
	"ledgerbot/internal/platform/metrics"
	dErrors "ledgerbot/pkg/domain-errors"
	audit "ledgerbot/pkg/platform/audit"
	"ledgerbot/pkg/platform/circuit"
	"ledgerbot/pkg/platform/sentinel"
	"ledgerbot/pkg/requestcontext"
)

// Sheet is the spreadsheet the ledger lives in. Implementations return
// sentinel.ErrMisconfigured for credential or addressing problems and
// sentinel.ErrUnavailable for anything worth retrying.
type Sheet interface {
	AppendRow(ctx context.Context, row []string) error
	ReadCells(ctx context.Context, cells []string) ([]string, error)
	ReadAll(ctx context.Context) ([][]string, error)
}

// Directory resolves submitter display names.
type Directory interface {
	Get(ctx context.Context, id int64) (*dirmodels.Requester, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Gateway struct {
	sheet          Sheet
	directory      Directory
	timeout        time.Duration
	breaker        *circuit.Breaker
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(g *Gateway) {
		g.auditPublisher = p
	}
}

// WithTimeout bounds every sheet call.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(g *Gateway) {
		if b != nil {
			g.breaker = b
		}
	}
}

func New(sheet Sheet, directory Directory, opts ...Option) (*Gateway, error) {
	if sheet == nil {
		return nil, errors.New("sheet is required")
	}
	if directory == nil {
		return nil, errors.New("directory is required")
	}
	g := &Gateway{
		sheet:     sheet,
		directory: directory,
		timeout:   15 * time.Second,
		breaker:   circuit.New("ledger"),
		logger:    slog.Default(),
		tracer:    otel.Tracer("ledgerbot/ledger"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Append writes one entry and reads the balances back. The entry's
// RecordedAt defaults to the request time.
func (g *Gateway) Append(ctx context.Context, entry models.Entry) (models.Receipt, error) {
	ctx, span := g.tracer.Start(ctx, "ledger.append", trace.WithAttributes(
		attribute.Int64("submitter_id", entry.SubmitterID),
		attribute.String("currency", string(entry.Currency)),
	))
	defer span.End()

	if err := entry.Validate(); err != nil {
		return models.Receipt{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid ledger entry")
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = requestcontext.Now(ctx)
	}

	name := g.submitterName(ctx, entry.SubmitterID)
	row := entry.Row(name)

	start := time.Now()
	err := g.call(ctx, func(ctx context.Context) error {
		return g.sheet.AppendRow(ctx, row)
	})
	if err != nil {
		g.metrics.ObserveLedgerAppend("failed", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		g.logger.ErrorContext(ctx, "ledger append failed",
			"requester_id", entry.SubmitterID,
			"update_id", requestcontext.UpdateID(ctx),
			"error", err,
		)
		return models.Receipt{}, translate(err, "failed to append ledger entry")
	}
	g.metrics.ObserveLedgerAppend("appended", time.Since(start))
	g.emitAudit(ctx, entry)

	receipt := models.Receipt{Row: row, SubmitterName: name}
	values, err := g.readCells(ctx, models.Cells(models.BalanceFigures))
	if err != nil {
		span.AddEvent("balances unavailable")
		g.logger.WarnContext(ctx, "ledger balances unavailable after append",
			"requester_id", entry.SubmitterID,
			"error", err,
		)
		return receipt, nil
	}
	receipt.Balances = models.FillFigures(models.BalanceFigures, values)
	receipt.BalancesAvailable = true
	return receipt, nil
}

// Overview reads every data row plus the summary figures. A failed summary
// read still returns the rows.
func (g *Gateway) Overview(ctx context.Context) (models.Overview, error) {
	ctx, span := g.tracer.Start(ctx, "ledger.overview")
	defer span.End()

	var values [][]string
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		values, err = g.sheet.ReadAll(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		g.logger.ErrorContext(ctx, "ledger read failed", "error", err)
		return models.Overview{}, translate(err, "failed to read ledger")
	}

	ov := models.Overview{Rows: models.BuildOverview(values)}
	summary, err := g.readCells(ctx, models.Cells(models.SummaryFigures))
	if err != nil {
		g.logger.WarnContext(ctx, "ledger summary unavailable", "error", err)
		return ov, nil
	}
	ov.Summary = models.FillFigures(models.SummaryFigures, summary)
	ov.SummaryAvailable = true
	return ov, nil
}

func (g *Gateway) readCells(ctx context.Context, cells []string) ([]string, error) {
	var values []string
	err := g.call(ctx, func(ctx context.Context) error {
		var err error
		values, err = g.sheet.ReadCells(ctx, cells)
		return err
	})
	return values, err
}

// call runs fn under the timeout and the breaker. Configuration errors do
// not count against the breaker; retrying them cannot help.
func (g *Gateway) call(ctx context.Context, fn func(context.Context) error) error {
	if !g.breaker.Allow() {
		return errBreakerOpen
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := fn(callCtx)
	switch {
	case err == nil:
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.metrics.SetBreakerOpen(false)
			g.logger.InfoContext(ctx, "ledger circuit closed")
		}
	case errors.Is(err, sentinel.ErrMisconfigured):
	default:
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.metrics.SetBreakerOpen(true)
			g.logger.WarnContext(ctx, "ledger circuit opened")
		}
	}
	return err
}

var errBreakerOpen = errors.Join(sentinel.ErrUnavailable, errors.New("ledger circuit open"))

func translate(err error, message string) error {
	if errors.Is(err, sentinel.ErrMisconfigured) {
		return dErrors.Wrap(err, dErrors.CodeLedgerConfig, message)
	}
	return dErrors.Wrap(err, dErrors.CodeLedgerUnavailable, message)
}

// submitterName is best-effort: an unknown requester or a failed lookup
// leaves the user column blank.
func (g *Gateway) submitterName(ctx context.Context, id int64) string {
	r, err := g.directory.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			g.logger.WarnContext(ctx, "submitter name lookup failed", "requester_id", id, "error", err)
		}
		return ""
	}
	return r.Name
}

func (g *Gateway) emitAudit(ctx context.Context, entry models.Entry) {
	if g.auditPublisher == nil {
		return
	}
	err := g.auditPublisher.Emit(ctx, audit.Event{
		Action:      string(audit.EventLedgerEntryAppended),
		RequesterID: entry.SubmitterID,
		Subject:     entry.Category,
		Decision:    entry.Direction.Label(),
		UpdateID:    requestcontext.UpdateID(ctx),
		Timestamp:   requestcontext.Now(ctx),
	})
	if err != nil {
		g.logger.WarnContext(ctx, "failed to emit audit event", "action", audit.EventLedgerEntryAppended, "error", err)
	}
}
