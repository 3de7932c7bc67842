// Package review is the administrator side of the access lifecycle: listing
// requesters by status, deciding pending requests, re-blocking or
// re-approving users and adding pre-approved users.
//
// Administrator capability is checked on every call. Status changes are
// serialised by the directory; the last committed write wins.
package review

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Directory,Gate,Notifier,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ledgerbot/internal/chat"
	"ledgerbot/internal/directory/models"
	"ledgerbot/internal/platform/metrics"
	dErrors "ledgerbot/pkg/domain-errors"
	audit "ledgerbot/pkg/platform/audit"
	"ledgerbot/pkg/platform/sentinel"
	"ledgerbot/pkg/requestcontext"
)

type Directory interface {
	Get(ctx context.Context, id int64) (*models.Requester, error)
	SetStatus(ctx context.Context, id int64, status models.Status) (models.Status, error)
	ListByStatus(ctx context.Context, status models.Status) ([]models.Requester, error)
	CreateApproved(ctx context.Context, r models.Requester) error
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]models.Requester, error)
}

type Gate interface {
	IsAdmin(id int64) bool
}

type Notifier interface {
	Notify(ctx context.Context, recipients []int64, msg chat.Message) map[int64]error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Decision reports what Decide changed.
type Decision struct {
	Requester models.Requester
	Previous  models.Status
	// Changed is false when the requester already had the requested status.
	Changed  bool
	Notified bool
}

// Diagnostics is the admin debug view of the directory.
type Diagnostics struct {
	Total  int
	Recent []models.Requester
}

const recentLimit = 5

type Service struct {
	directory      Directory
	gate           Gate
	notifier       Notifier
	notice         NoticeComposer
	auditPublisher AuditPublisher
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

func WithNoticeComposer(c NoticeComposer) Option {
	return func(s *Service) {
		s.notice = c
	}
}

func New(directory Directory, gate Gate, notifier Notifier, opts ...Option) (*Service, error) {
	if directory == nil {
		return nil, errors.New("directory is required")
	}
	if gate == nil {
		return nil, errors.New("gate is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Service{
		directory: directory,
		gate:      gate,
		notifier:  notifier,
		notice:    DefaultNotice,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) requireAdmin(actor int64) error {
	if !s.gate.IsAdmin(actor) {
		return dErrors.New(dErrors.CodeForbidden, "administrator only")
	}
	return nil
}

// ListPending returns requesters awaiting review, newest first.
func (s *Service) ListPending(ctx context.Context, actor int64) ([]models.Requester, error) {
	return s.ListByStatus(ctx, actor, models.StatusPending)
}

func (s *Service) ListByStatus(ctx context.Context, actor int64, status models.Status) ([]models.Requester, error) {
	if err := s.requireAdmin(actor); err != nil {
		return nil, err
	}
	if status == models.StatusUnregistered {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unregistered requesters are not stored")
	}
	out, err := s.directory.ListByStatus(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requesters")
	}
	return out, nil
}

// Decide sets requester id to outcome. Repeating the current status succeeds
// without notifying anyone; a different outcome overrides the previous one.
// The requester is told best-effort; a failed notification is only logged.
func (s *Service) Decide(ctx context.Context, id int64, outcome models.Status, actor int64) (Decision, error) {
	if err := s.requireAdmin(actor); err != nil {
		s.metrics.ObserveReview("forbidden")
		s.logger.WarnContext(ctx, "review decision refused",
			"requester_id", id,
			"actor_id", actor,
		)
		return Decision{}, err
	}
	if !outcome.IsDecision() {
		return Decision{}, dErrors.New(dErrors.CodeInvalidInput, "outcome must be approved or denied")
	}

	previous, err := s.directory.SetStatus(ctx, id, outcome)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.ObserveReview("not_found")
			return Decision{}, dErrors.Wrap(err, dErrors.CodeNotFound, "requester not found")
		}
		if errors.Is(err, sentinel.ErrInvalidState) {
			s.metrics.ObserveReview("invalid")
			return Decision{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "status change not allowed")
		}
		s.metrics.ObserveReview("error")
		return Decision{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update requester")
	}

	d := Decision{Previous: previous, Changed: previous != outcome}
	if r, err := s.directory.Get(ctx, id); err == nil {
		d.Requester = *r
	} else {
		d.Requester = models.Requester{ID: id, Status: outcome}
	}

	if !d.Changed {
		s.metrics.ObserveReview("unchanged")
		return d, nil
	}
	s.metrics.ObserveReview(string(outcome))
	s.emitAudit(ctx, decisionEvent(outcome), id, actor, string(outcome), d.Requester.Name)
	s.logger.InfoContext(ctx, "review decision applied",
		"requester_id", id,
		"actor_id", actor,
		"previous", previous,
		"outcome", outcome,
	)

	if msg, ok := s.notice(previous, outcome); ok {
		results := s.notifier.Notify(ctx, []int64{id}, msg)
		if err := results[id]; err != nil {
			s.logger.WarnContext(ctx, "requester not notified of decision",
				"requester_id", id,
				"error", err,
			)
		} else {
			d.Notified = true
		}
	}
	return d, nil
}

// AddApproved creates an approved requester directly, skipping the form.
func (s *Service) AddApproved(ctx context.Context, actor, id int64, name, contact string) (models.Requester, error) {
	if err := s.requireAdmin(actor); err != nil {
		return models.Requester{}, err
	}
	name = strings.TrimSpace(name)
	contact = strings.TrimSpace(contact)
	if id <= 0 {
		return models.Requester{}, dErrors.New(dErrors.CodeInvalidInput, "requester id must be positive")
	}
	if name == "" || contact == "" {
		return models.Requester{}, dErrors.New(dErrors.CodeInvalidInput, "name and contact are required")
	}

	r := models.Requester{
		ID:           id,
		Name:         name,
		Contact:      contact,
		Status:       models.StatusApproved,
		RegisteredAt: requestcontext.Now(ctx),
	}
	if err := s.directory.CreateApproved(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return models.Requester{}, dErrors.Wrap(err, dErrors.CodeConflict, "requester already exists")
		}
		return models.Requester{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add requester")
	}
	s.metrics.ObserveReview("added")
	s.emitAudit(ctx, audit.EventRequesterAdded, id, actor, string(models.StatusApproved), name)
	s.logger.InfoContext(ctx, "requester added", "requester_id", id, "actor_id", actor)
	return r, nil
}

func (s *Service) Diagnostics(ctx context.Context, actor int64) (Diagnostics, error) {
	if err := s.requireAdmin(actor); err != nil {
		return Diagnostics{}, err
	}
	total, err := s.directory.Count(ctx)
	if err != nil {
		return Diagnostics{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count requesters")
	}
	recent, err := s.directory.Recent(ctx, recentLimit)
	if err != nil {
		return Diagnostics{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list recent requesters")
	}
	return Diagnostics{Total: total, Recent: recent}, nil
}

func decisionEvent(outcome models.Status) audit.AuditEvent {
	if outcome == models.StatusApproved {
		return audit.EventRequesterApproved
	}
	return audit.EventRequesterDenied
}

func (s *Service) emitAudit(ctx context.Context, event audit.AuditEvent, id, actor int64, decision, subject string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:      string(event),
		RequesterID: id,
		ActorID:     actor,
		Subject:     subject,
		Decision:    decision,
		UpdateID:    requestcontext.UpdateID(ctx),
		Timestamp:   requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event, "error", err)
	}
}
