// Package taxonomy manages the category and pay type lists. Reading is open
// to anyone filling in an entry; changes are administrator only. Renames
// never touch rows already written to the ledger.
package taxonomy

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Gate,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"unicode/utf8"

	"ledgerbot/internal/taxonomy/models"
	dErrors "ledgerbot/pkg/domain-errors"
	audit "ledgerbot/pkg/platform/audit"
	"ledgerbot/pkg/platform/sentinel"
	pstrings "ledgerbot/pkg/platform/strings"
	"ledgerbot/pkg/requestcontext"
)

type Store interface {
	List(ctx context.Context, kind models.Kind) ([]models.Item, error)
	Get(ctx context.Context, kind models.Kind, id int64) (models.Item, error)
	Add(ctx context.Context, kind models.Kind, name string) (models.Item, error)
	Rename(ctx context.Context, kind models.Kind, id int64, name string) (models.Item, error)
	Delete(ctx context.Context, kind models.Kind, id int64) (models.Item, error)
	SeedIfEmpty(ctx context.Context, kind models.Kind, names []string) (int, error)
}

type Gate interface {
	IsAdmin(id int64) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// maxNameLength keeps names usable as button labels.
const maxNameLength = 64

type Service struct {
	store          Store
	gate           Gate
	auditPublisher AuditPublisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

func New(store Store, gate Gate, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("taxonomy store is required")
	}
	if gate == nil {
		return nil, errors.New("gate is required")
	}
	s := &Service{
		store:  store,
		gate:   gate,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Seed fills empty lists with the defaults.
func (s *Service) Seed(ctx context.Context) error {
	for _, kind := range []models.Kind{models.KindPayType, models.KindCategory} {
		n, err := s.store.SeedIfEmpty(ctx, kind, models.Defaults(kind))
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed "+string(kind))
		}
		if n > 0 {
			s.logger.InfoContext(ctx, "taxonomy seeded", "kind", kind, "count", n)
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, kind models.Kind) ([]models.Item, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown taxonomy kind")
	}
	items, err := s.store.List(ctx, kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list "+string(kind))
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, kind models.Kind, id int64) (models.Item, error) {
	item, err := s.store.Get(ctx, kind, id)
	if err != nil {
		return models.Item{}, translate(err, "failed to read "+string(kind))
	}
	return item, nil
}

// Add stores a new name after stripping a leading emoji or symbol run.
func (s *Service) Add(ctx context.Context, actor int64, kind models.Kind, raw string) (models.Item, error) {
	name, err := s.prepare(actor, kind, raw)
	if err != nil {
		return models.Item{}, err
	}
	item, err := s.store.Add(ctx, kind, name)
	if err != nil {
		return models.Item{}, translate(err, "failed to add "+string(kind))
	}
	s.emitAudit(ctx, actor, kind, "added", item.Name, "")
	return item, nil
}

// Rename changes the name of id and returns the item before and after.
func (s *Service) Rename(ctx context.Context, actor int64, kind models.Kind, id int64, raw string) (previous, current models.Item, err error) {
	name, err := s.prepare(actor, kind, raw)
	if err != nil {
		return models.Item{}, models.Item{}, err
	}
	previous, err = s.store.Rename(ctx, kind, id, name)
	if err != nil {
		return models.Item{}, models.Item{}, translate(err, "failed to rename "+string(kind))
	}
	current = models.Item{ID: id, Name: name}
	s.emitAudit(ctx, actor, kind, "renamed", current.Name, previous.Name)
	return previous, current, nil
}

func (s *Service) Delete(ctx context.Context, actor int64, kind models.Kind, id int64) (models.Item, error) {
	if err := s.authorize(actor, kind); err != nil {
		return models.Item{}, err
	}
	removed, err := s.store.Delete(ctx, kind, id)
	if err != nil {
		return models.Item{}, translate(err, "failed to delete "+string(kind))
	}
	s.emitAudit(ctx, actor, kind, "deleted", removed.Name, "")
	return removed, nil
}

func (s *Service) authorize(actor int64, kind models.Kind) error {
	if !s.gate.IsAdmin(actor) {
		return dErrors.New(dErrors.CodeForbidden, "administrator only")
	}
	if !kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown taxonomy kind")
	}
	return nil
}

func (s *Service) prepare(actor int64, kind models.Kind, raw string) (string, error) {
	if err := s.authorize(actor, kind); err != nil {
		return "", err
	}
	name := pstrings.StripLeadingSymbol(raw)
	if name == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "name is too long")
	}
	return name, nil
}

func translate(err error, message string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, message)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, message)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, message)
	}
}

func (s *Service) emitAudit(ctx context.Context, actor int64, kind models.Kind, decision, subject, previous string) {
	s.logger.InfoContext(ctx, "taxonomy changed",
		"actor_id", actor,
		"kind", kind,
		"change", decision,
		"name", subject,
	)
	if s.auditPublisher == nil {
		return
	}
	reason := string(kind)
	if previous != "" {
		reason += ":" + previous
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:    string(audit.EventTaxonomyChanged),
		ActorID:   actor,
		Subject:   subject,
		Decision:  decision,
		Reason:    reason,
		UpdateID:  requestcontext.UpdateID(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", audit.EventTaxonomyChanged, "error", err)
	}
}
