// Package bot connects the chat transport to the services. Every inbound
// action is handled on its own goroutine; a panic in one handler is recovered
// and never affects other requesters.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerbot/internal/access"
	"ledgerbot/internal/chat"
	"ledgerbot/internal/conversation"
	"ledgerbot/internal/directory/models"
	ledgermodels "ledgerbot/internal/ledger/models"
	"ledgerbot/internal/platform/metrics"
	"ledgerbot/internal/registration"
	"ledgerbot/internal/review"
	taxmodels "ledgerbot/internal/taxonomy/models"
	"ledgerbot/pkg/requestcontext"
)

// Transport is the chat platform. Send doubles as the notification sender.
type Transport interface {
	Updates(ctx context.Context) <-chan chat.Action
	Send(ctx context.Context, recipient int64, msg chat.Message) error
	Edit(ctx context.Context, ref chat.MessageRef, msg chat.Message) error
	AnswerButton(ctx context.Context, buttonID, text string, alert bool) error
	SetCommands(ctx context.Context, commands []chat.Command) error
}

type Access interface {
	Check(ctx context.Context, id int64) access.Decision
	IsAdmin(id int64) bool
}

type Registration interface {
	Begin(ctx context.Context, id int64) (registration.Result, error)
	Continue(ctx context.Context, id int64, form conversation.Registration, text string) (registration.Result, error)
}

type Review interface {
	ListByStatus(ctx context.Context, actor int64, status models.Status) ([]models.Requester, error)
	Decide(ctx context.Context, id int64, outcome models.Status, actor int64) (review.Decision, error)
	AddApproved(ctx context.Context, actor, id int64, name, contact string) (models.Requester, error)
	Diagnostics(ctx context.Context, actor int64) (review.Diagnostics, error)
}

type Ledger interface {
	Append(ctx context.Context, entry ledgermodels.Entry) (ledgermodels.Receipt, error)
	Overview(ctx context.Context) (ledgermodels.Overview, error)
}

type Taxonomy interface {
	List(ctx context.Context, kind taxmodels.Kind) ([]taxmodels.Item, error)
	Get(ctx context.Context, kind taxmodels.Kind, id int64) (taxmodels.Item, error)
	Add(ctx context.Context, actor int64, kind taxmodels.Kind, raw string) (taxmodels.Item, error)
	Rename(ctx context.Context, actor int64, kind taxmodels.Kind, id int64, raw string) (taxmodels.Item, taxmodels.Item, error)
	Delete(ctx context.Context, actor int64, kind taxmodels.Kind, id int64) (taxmodels.Item, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []int64, msg chat.Message) map[int64]error
}

// Roster lists directory records without an actor check, for the startup
// nudge.
type Roster interface {
	ListByStatus(ctx context.Context, status models.Status) ([]models.Requester, error)
}

// Services groups the collaborators the handlers call.
type Services struct {
	Access        Access
	Registration  Registration
	Review        Review
	Ledger        Ledger
	Taxonomy      Taxonomy
	Notifier      Notifier
	Roster        Roster
	Conversations conversation.Store
}

func (s Services) validate() error {
	var errs []error
	if s.Access == nil {
		errs = append(errs, errors.New("access controller is required"))
	}
	if s.Registration == nil {
		errs = append(errs, errors.New("registration workflow is required"))
	}
	if s.Review == nil {
		errs = append(errs, errors.New("review queue is required"))
	}
	if s.Ledger == nil {
		errs = append(errs, errors.New("ledger gateway is required"))
	}
	if s.Taxonomy == nil {
		errs = append(errs, errors.New("taxonomy service is required"))
	}
	if s.Notifier == nil {
		errs = append(errs, errors.New("notifier is required"))
	}
	if s.Roster == nil {
		errs = append(errs, errors.New("roster is required"))
	}
	if s.Conversations == nil {
		errs = append(errs, errors.New("conversation store is required"))
	}
	return errors.Join(errs...)
}

const (
	defaultHandlerTimeout = time.Minute
	maxMessageRunes       = 4000
)

type Bot struct {
	transport      Transport
	svc            Services
	operator       string
	handlerTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
	metrics        *metrics.Metrics

	inflight sync.WaitGroup
}

type Option func(*Bot)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bot) {
		b.metrics = m
	}
}

// WithOperatorContact sets who blocked users and ledger config failures are
// pointed to.
func WithOperatorContact(contact string) Option {
	return func(b *Bot) {
		b.operator = contact
	}
}

// WithHandlerTimeout bounds one handler, external calls included.
func WithHandlerTimeout(d time.Duration) Option {
	return func(b *Bot) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Bot) {
		if now != nil {
			b.now = now
		}
	}
}

func New(transport Transport, svc Services, opts ...Option) (*Bot, error) {
	if transport == nil {
		return nil, errors.New("transport is required")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}
	b := &Bot{
		transport:      transport,
		svc:            svc,
		handlerTimeout: defaultHandlerTimeout,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Start installs the command menu and nudges approved users to reopen the
// menu. Both are best-effort.
func (b *Bot) Start(ctx context.Context) {
	if err := b.transport.SetCommands(ctx, menuCommands); err != nil {
		b.logger.WarnContext(ctx, "failed to install command menu", "error", err)
	}

	approved, err := b.svc.Roster.ListByStatus(ctx, models.StatusApproved)
	if err != nil {
		b.logger.WarnContext(ctx, "failed to list approved users for startup nudge", "error", err)
		return
	}
	ids := make([]int64, len(approved))
	for i, r := range approved {
		ids[i] = r.ID
	}
	if len(ids) == 0 {
		return
	}
	results := b.svc.Notifier.Notify(ctx, ids, chat.Text(msgNudge))
	failed := 0
	for _, err := range results {
		if err != nil {
			failed++
		}
	}
	b.logger.InfoContext(ctx, "startup nudge sent", "recipients", len(ids), "failed", failed)
}

// Run handles updates until ctx is cancelled or the transport closes its
// channel, then waits for in-flight handlers.
func (b *Bot) Run(ctx context.Context) error {
	updates := b.transport.Updates(ctx)
	b.logger.InfoContext(ctx, "bot started")
	defer func() {
		b.inflight.Wait()
		b.logger.Info("bot stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case action, ok := <-updates:
			if !ok {
				return nil
			}
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				b.Handle(ctx, action)
			}()
		}
	}
}

// Handle processes one action. The handler keeps running after ctx is
// cancelled so a shutdown does not cut an append in half; its own timeout
// still applies.
func (b *Bot) Handle(ctx context.Context, a chat.Action) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.handlerTimeout)
	defer cancel()
	ctx = requestcontext.WithRequester(ctx, a.SenderID)
	ctx = requestcontext.WithUpdateID(ctx, uuid.NewString())
	ctx = requestcontext.WithTime(ctx, b.now())

	defer func() {
		if r := recover(); r != nil {
			b.metrics.IncrementPanics()
			b.logger.ErrorContext(ctx, "handler panic recovered",
				"requester_id", a.SenderID,
				"update_id", requestcontext.UpdateID(ctx),
				"kind", a.Kind,
				"panic", fmt.Sprint(r),
			)
		}
	}()

	b.metrics.ObserveUpdate(string(a.Kind))
	switch a.Kind {
	case chat.KindCommand:
		b.handleCommand(ctx, a)
	case chat.KindText:
		b.handleText(ctx, a)
	case chat.KindButton:
		b.handleButton(ctx, a)
	}
}

func (b *Bot) reply(ctx context.Context, a chat.Action, msg chat.Message) {
	recipient := a.SenderID
	if a.MessageRef.ChatID != 0 {
		recipient = a.MessageRef.ChatID
	}
	parts := splitText(msg.Text, maxMessageRunes)
	for i, part := range parts {
		m := msg
		m.Text = part
		if i < len(parts)-1 {
			m.Inline, m.ReplyKeyboard = nil, nil
		}
		if err := b.transport.Send(ctx, recipient, m); err != nil {
			b.logger.WarnContext(ctx, "reply not delivered",
				"requester_id", a.SenderID,
				"update_id", requestcontext.UpdateID(ctx),
				"error", err,
			)
			return
		}
	}
}

func (b *Bot) replyText(ctx context.Context, a chat.Action, text string) {
	b.reply(ctx, a, chat.Text(text))
}

func (b *Bot) answer(ctx context.Context, a chat.Action, text string, alert bool) {
	if a.ButtonID == "" {
		return
	}
	if err := b.transport.AnswerButton(ctx, a.ButtonID, text, alert); err != nil {
		b.logger.DebugContext(ctx, "button answer failed", "error", err)
	}
}

func (b *Bot) edit(ctx context.Context, a chat.Action, msg chat.Message) {
	if a.MessageRef.MessageID == 0 {
		b.reply(ctx, a, msg)
		return
	}
	if err := b.transport.Edit(ctx, a.MessageRef, msg); err != nil {
		b.logger.WarnContext(ctx, "message edit failed", "error", err)
		b.reply(ctx, a, msg)
	}
}

func (b *Bot) clearConversation(ctx context.Context, id int64) {
	if err := b.svc.Conversations.Clear(ctx, id); err != nil {
		b.logger.WarnContext(ctx, "failed to clear conversation", "requester_id", id, "error", err)
	}
}

// allowed checks access and answers refused requesters itself.
func (b *Bot) allowed(ctx context.Context, a chat.Action) bool {
	d := b.svc.Access.Check(ctx, a.SenderID)
	if d.Allowed {
		return true
	}
	b.answer(ctx, a, "", false)
	b.replyText(ctx, a, deniedText(d, b.operator))
	return false
}

// admin checks the allow-list and answers everyone else itself.
func (b *Bot) admin(ctx context.Context, a chat.Action) bool {
	if b.svc.Access.IsAdmin(a.SenderID) {
		return true
	}
	if a.Kind == chat.KindButton {
		b.answer(ctx, a, msgAdminOnly, true)
		return false
	}
	b.replyText(ctx, a, msgAdminOnly)
	return false
}
