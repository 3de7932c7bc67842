// Package registration runs the two-step sign-up form: name, then contact.
// A completed form creates a pending directory record and alerts every
// administrator.
package registration

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Directory,Gate,Notifier,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"

	"ledgerbot/internal/chat"
	"ledgerbot/internal/conversation"
	"ledgerbot/internal/directory/models"
	"ledgerbot/internal/platform/metrics"
	dErrors "ledgerbot/pkg/domain-errors"
	audit "ledgerbot/pkg/platform/audit"
	"ledgerbot/pkg/requestcontext"
)

type Directory interface {
	Status(ctx context.Context, id int64) (models.Status, error)
	UpsertPending(ctx context.Context, id int64, name, contact string) (models.UpsertResult, error)
}

// Gate exposes the administrator allow-list.
type Gate interface {
	IsAdmin(id int64) bool
	Admins() []int64
}

type Notifier interface {
	Notify(ctx context.Context, recipients []int64, msg chat.Message) map[int64]error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Outcome tells the chat layer what to say next.
type Outcome string

const (
	OutcomeAskName         Outcome = "ask_name"
	OutcomeAskContact      Outcome = "ask_contact"
	OutcomeInvalidName     Outcome = "invalid_name"
	OutcomeInvalidContact  Outcome = "invalid_contact"
	OutcomeSubmitted       Outcome = "submitted"
	OutcomeAlreadyPresent  Outcome = "already_present"
	OutcomeAlreadyApproved Outcome = "already_approved"
	OutcomeAlreadyPending  Outcome = "already_pending"
	OutcomeDenied          Outcome = "denied"
)

type Result struct {
	Outcome Outcome
	Name    string
	Contact string
	Status  models.Status
	// AlertsFailed counts administrators the alert could not reach.
	AlertsFailed int
}

type Service struct {
	directory      Directory
	conversations  conversation.Store
	gate           Gate
	notifier       Notifier
	compose        AlertComposer
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

func WithAlertComposer(c AlertComposer) Option {
	return func(s *Service) {
		s.compose = c
	}
}

func New(directory Directory, conversations conversation.Store, gate Gate, notifier Notifier, opts ...Option) (*Service, error) {
	if directory == nil {
		return nil, errors.New("directory is required")
	}
	if conversations == nil {
		return nil, errors.New("conversation store is required")
	}
	if gate == nil {
		return nil, errors.New("gate is required")
	}
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	s := &Service{
		directory:     directory,
		conversations: conversations,
		gate:          gate,
		notifier:      notifier,
		compose:       DefaultAlert,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Begin starts the form for an unregistered requester. Anyone else is told
// where they stand and no form is created.
func (s *Service) Begin(ctx context.Context, id int64) (Result, error) {
	if s.gate.IsAdmin(id) {
		return Result{Outcome: OutcomeAlreadyApproved, Status: models.StatusApproved}, nil
	}
	status, err := s.directory.Status(ctx, id)
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up requester")
	}
	switch status {
	case models.StatusApproved:
		return Result{Outcome: OutcomeAlreadyApproved, Status: status}, nil
	case models.StatusPending:
		return Result{Outcome: OutcomeAlreadyPending, Status: status}, nil
	case models.StatusDenied:
		return Result{Outcome: OutcomeDenied, Status: status}, nil
	}

	if err := s.conversations.Put(ctx, id, conversation.NewRegistration()); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start registration")
	}
	return Result{Outcome: OutcomeAskName, Status: status}, nil
}

// Continue feeds one text reply into an in-progress form. A rejected step
// keeps the form where it was.
func (s *Service) Continue(ctx context.Context, id int64, form conversation.Registration, text string) (Result, error) {
	switch form.Step {
	case conversation.StepName:
		return s.acceptName(ctx, id, text)
	case conversation.StepContact:
		return s.acceptContact(ctx, id, form.Name, text)
	default:
		return Result{}, dErrors.New(dErrors.CodeInternal, "unknown registration step")
	}
}

func (s *Service) acceptName(ctx context.Context, id int64, text string) (Result, error) {
	name, ok := normalizeName(text)
	if !ok {
		s.metrics.ObserveRegistration("invalid_name")
		return Result{Outcome: OutcomeInvalidName}, nil
	}
	next := conversation.NewRegistration()
	next.Registration.Step = conversation.StepContact
	next.Registration.Name = name
	if err := s.conversations.Put(ctx, id, next); err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save registration step")
	}
	return Result{Outcome: OutcomeAskContact, Name: name}, nil
}

func (s *Service) acceptContact(ctx context.Context, id int64, name, text string) (Result, error) {
	contact, ok := normalizeContact(text)
	if !ok {
		s.metrics.ObserveRegistration("invalid_contact")
		return Result{Outcome: OutcomeInvalidContact, Name: name}, nil
	}

	created, err := s.directory.UpsertPending(ctx, id, name, contact)
	if err != nil {
		s.metrics.ObserveRegistration("error")
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to submit registration")
	}
	if err := s.conversations.Clear(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to clear registration form", "requester_id", id, "error", err)
	}

	if created == models.AlreadyPresent {
		s.metrics.ObserveRegistration("already_present")
		return Result{Outcome: OutcomeAlreadyPresent, Name: name, Contact: contact}, nil
	}

	s.metrics.ObserveRegistration("submitted")
	s.emitAudit(ctx, id, name)

	requester := models.Requester{
		ID:           id,
		Name:         name,
		Contact:      contact,
		Status:       models.StatusPending,
		RegisteredAt: requestcontext.Now(ctx),
	}
	results := s.notifier.Notify(ctx, s.gate.Admins(), s.compose(requester))
	failed := 0
	for admin, err := range results {
		if err != nil {
			failed++
			s.logger.WarnContext(ctx, "registration alert not delivered",
				"requester_id", id,
				"admin_id", admin,
				"error", err,
			)
		}
	}

	s.logger.InfoContext(ctx, "registration submitted",
		"requester_id", id,
		"update_id", requestcontext.UpdateID(ctx),
	)
	return Result{Outcome: OutcomeSubmitted, Name: name, Contact: contact, Status: models.StatusPending, AlertsFailed: failed}, nil
}

func (s *Service) emitAudit(ctx context.Context, id int64, name string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:      string(audit.EventRegistrationSubmitted),
		RequesterID: id,
		Subject:     name,
		UpdateID:    requestcontext.UpdateID(ctx),
		Timestamp:   requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", audit.EventRegistrationSubmitted, "error", err)
	}
}
