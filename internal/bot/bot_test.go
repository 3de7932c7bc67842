package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"ledgerbot/internal/access"
	"ledgerbot/internal/chat"
	"ledgerbot/internal/conversation"
	"ledgerbot/internal/directory/models"
	dirstore "ledgerbot/internal/directory/store"
	"ledgerbot/internal/ledger"
	ledgermodels "ledgerbot/internal/ledger/models"
	"ledgerbot/internal/notify"
	"ledgerbot/internal/platform/metrics"
	"ledgerbot/internal/registration"
	"ledgerbot/internal/review"
	"ledgerbot/internal/taxonomy"
	taxmodels "ledgerbot/internal/taxonomy/models"
	taxstore "ledgerbot/internal/taxonomy/store"
	"ledgerbot/pkg/platform/circuit"
	"ledgerbot/pkg/platform/sentinel"
	tu "ledgerbot/pkg/testutil"
)

// =============================================================================
// Bot Dispatch Test Suite
// =============================================================================
// Justification for unit tests: the handlers are the only place the services
// are composed into conversations. These tests drive real in-memory services
// through a recording transport and a fake sheet.

const (
	adminID    int64 = 1
	approvedID int64 = 100
)

type sent struct {
	recipient int64
	msg       chat.Message
}

type answered struct {
	text  string
	alert bool
}

// fakeTransport records everything the bot sends.
type fakeTransport struct {
	mu       sync.Mutex
	sent     []sent
	edits    []chat.Message
	answers  []answered
	commands []chat.Command
	updates  chan chat.Action
}

func (f *fakeTransport) Updates(context.Context) <-chan chat.Action { return f.updates }

func (f *fakeTransport) Send(_ context.Context, recipient int64, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{recipient: recipient, msg: msg})
	return nil
}

func (f *fakeTransport) Edit(_ context.Context, _ chat.MessageRef, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, msg)
	return nil
}

func (f *fakeTransport) AnswerButton(_ context.Context, _ string, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answered{text: text, alert: alert})
	return nil
}

func (f *fakeTransport) SetCommands(_ context.Context, commands []chat.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = commands
	return nil
}

func (f *fakeTransport) lastTo(recipient int64) chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].recipient == recipient {
			return f.sent[i].msg
		}
	}
	return chat.Message{}
}

func (f *fakeTransport) allTo(recipient int64) []chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, m := range f.sent {
		if m.recipient == recipient {
			out = append(out, m.msg)
		}
	}
	return out
}

func (f *fakeTransport) lastEdit() chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return chat.Message{}
	}
	return f.edits[len(f.edits)-1]
}

func (f *fakeTransport) lastAnswer() answered {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		return answered{}
	}
	return f.answers[len(f.answers)-1]
}

// fakeSheet is an in-memory ledger sheet. appendErrs are returned by the
// next appends, in order.
type fakeSheet struct {
	mu         sync.Mutex
	rows       [][]string
	appendErrs []error
}

func (f *fakeSheet) AppendRow(_ context.Context, row []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.appendErrs) > 0 {
		err := f.appendErrs[0]
		f.appendErrs = f.appendErrs[1:]
		return err
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeSheet) ReadCells(_ context.Context, cells []string) ([]string, error) {
	out := make([]string, len(cells))
	for i := range cells {
		out[i] = strconv.Itoa(1000 * (i + 1))
	}
	return out, nil
}

func (f *fakeSheet) ReadAll(context.Context) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	header := make([]string, ledgermodels.RowWidth)
	header[ledgermodels.ColDate] = "Sana"
	header[ledgermodels.ColCategory] = "Kategoriya"
	return append([][]string{{"totals"}, header}, f.rows...), nil
}

func (f *fakeSheet) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type BotSuite struct {
	suite.Suite
	transport     *fakeTransport
	sheet         *fakeSheet
	directory     *dirstore.InMemory
	taxonomy      *taxstore.InMemory
	conversations *conversation.InMemoryStore
	metrics       *metrics.Metrics
	svc           Services
	bot           *Bot
}

func TestBotSuite(t *testing.T) {
	suite.Run(t, new(BotSuite))
}

func (s *BotSuite) SetupTest() {
	ctx := tu.RequestContext(adminID)
	logger := tu.DiscardLogger()
	s.transport = &fakeTransport{updates: make(chan chat.Action)}
	s.sheet = &fakeSheet{}
	s.directory = dirstore.NewInMemory()
	s.taxonomy = taxstore.NewInMemory()
	s.conversations = conversation.NewInMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())

	s.Require().NoError(s.directory.CreateApproved(ctx, models.Requester{ID: approvedID, Name: "Ana", Contact: "+998901234567"}))

	gate, err := access.New(s.directory, []int64{adminID}, access.WithLogger(logger))
	s.Require().NoError(err)
	fanout, err := notify.New(s.transport, notify.WithLogger(logger))
	s.Require().NoError(err)
	reg, err := registration.New(s.directory, s.conversations, gate, fanout, registration.WithLogger(logger))
	s.Require().NoError(err)
	rev, err := review.New(s.directory, gate, fanout, review.WithLogger(logger))
	s.Require().NoError(err)
	gw, err := ledger.New(s.sheet, s.directory,
		ledger.WithLogger(logger),
		ledger.WithBreaker(circuit.New("ledger-test", circuit.WithFailureThreshold(5))),
	)
	s.Require().NoError(err)
	tax, err := taxonomy.New(s.taxonomy, gate, taxonomy.WithLogger(logger))
	s.Require().NoError(err)
	s.Require().NoError(tax.Seed(ctx))

	s.svc = Services{
		Access:        gate,
		Registration:  reg,
		Review:        rev,
		Ledger:        gw,
		Taxonomy:      tax,
		Notifier:      fanout,
		Roster:        s.directory,
		Conversations: s.conversations,
	}
	s.bot, err = New(s.transport, s.svc,
		WithLogger(logger),
		WithMetrics(s.metrics),
		WithOperatorContact("@operator"),
		WithClock(func() time.Time { return tu.FixedTime }),
	)
	s.Require().NoError(err)
}

func command(from int64, name, args string) chat.Action {
	return chat.Action{SenderID: from, Kind: chat.KindCommand, Command: name, Payload: args}
}

func text(from int64, payload string) chat.Action {
	return chat.Action{SenderID: from, Kind: chat.KindText, Payload: payload}
}

func button(from int64, data string) chat.Action {
	return chat.Action{
		SenderID:   from,
		Kind:       chat.KindButton,
		Payload:    data,
		ButtonID:   "cb",
		MessageRef: chat.MessageRef{ChatID: from, MessageID: 77},
	}
}

func (s *BotSuite) itemID(kind taxmodels.Kind, name string) int64 {
	items, err := s.taxonomy.List(context.Background(), kind)
	s.Require().NoError(err)
	for _, it := range items {
		if it.Name == name {
			return it.ID
		}
	}
	s.FailNow("taxonomy item missing", name)
	return 0
}

func (s *BotSuite) TestNew() {
	_, err := New(nil, s.svc)
	s.Require().Error(err)
	s.Contains(err.Error(), "transport is required")

	svc := s.svc
	svc.Ledger = nil
	svc.Roster = nil
	_, err = New(s.transport, svc)
	s.Require().Error(err)
	s.Contains(err.Error(), "ledger gateway is required")
	s.Contains(err.Error(), "roster is required")
}

func (s *BotSuite) TestStartInstallsMenuAndNudgesApproved() {
	s.bot.Start(context.Background())

	s.Equal(menuCommands, s.transport.commands)
	s.Equal(msgNudge, s.transport.lastTo(approvedID).Text)
	s.Empty(s.transport.lastTo(adminID).Text, "admins are not in the directory")
}

func (s *BotSuite) TestStartRefusals() {
	ctx := context.Background()

	s.Run("unregistered", func() {
		s.bot.Handle(ctx, command(500, "start", ""))
		s.Equal(msgNotRegistered, s.transport.lastTo(500).Text)
	})

	s.Run("pending", func() {
		_, err := s.directory.UpsertPending(ctx, 501, "Bek", "+998901112233")
		s.Require().NoError(err)
		s.bot.Handle(ctx, command(501, "start", ""))
		s.Equal(msgPendingAccess, s.transport.lastTo(501).Text)
	})

	s.Run("blocked", func() {
		_, err := s.directory.SetStatus(ctx, 501, models.StatusDenied)
		s.Require().NoError(err)
		s.bot.Handle(ctx, command(501, "entry", ""))
		s.Contains(s.transport.lastTo(501).Text, "bloklangan")
		s.Contains(s.transport.lastTo(501).Text, "@operator")
	})

	s.Run("approved gets the menu keyboard", func() {
		s.bot.Handle(ctx, command(approvedID, "start", ""))
		msg := s.transport.lastTo(approvedID)
		s.Equal(msgWelcome, msg.Text)
		s.Equal(mainKeyboard, msg.ReplyKeyboard)
	})
}

func (s *BotSuite) TestRegistrationThroughApproval() {
	ctx := context.Background()
	const newcomer int64 = 200

	s.bot.Handle(ctx, command(newcomer, "register", ""))
	s.Equal(msgAskName, s.transport.lastTo(newcomer).Text)

	s.bot.Handle(ctx, text(newcomer, "B"))
	s.Equal(msgInvalidName, s.transport.lastTo(newcomer).Text)

	s.bot.Handle(ctx, text(newcomer, "Bek Aliyev"))
	s.Equal(msgAskContact, s.transport.lastTo(newcomer).Text)

	s.bot.Handle(ctx, text(newcomer, "+998901112233"))
	s.Contains(s.transport.lastTo(newcomer).Text, "Bek Aliyev")

	alert := s.transport.lastTo(adminID)
	s.Require().NotEmpty(alert.Inline)
	s.Equal(chat.ButtonData(chat.ActionApprove, newcomer), alert.Inline[0][0].Data)

	s.bot.Handle(ctx, button(adminID, alert.Inline[0][0].Data))
	s.Contains(s.transport.lastEdit().Text, "tasdiqlandi")
	s.Contains(s.transport.lastEdit().Text, "Bek Aliyev")
	s.Contains(s.transport.lastTo(newcomer).Text, "Tabriklaymiz")

	s.bot.Handle(ctx, command(newcomer, "start", ""))
	s.Equal(msgWelcome, s.transport.lastTo(newcomer).Text)

	s.bot.Handle(ctx, command(newcomer, "register", ""))
	s.Equal(msgAlreadyRegistered, s.transport.lastTo(newcomer).Text)
}

func (s *BotSuite) TestReviewButtonFromNonAdmin() {
	s.bot.Handle(context.Background(), button(approvedID, chat.ButtonData(chat.ActionReject, 300)))
	s.Equal(answered{text: msgAdminOnly, alert: true}, s.transport.lastAnswer())
}

func (s *BotSuite) completeEntry(from int64) {
	ctx := context.Background()
	s.bot.Handle(ctx, command(from, "entry", ""))
	s.Equal(directionKeyboard, s.transport.lastTo(from).Inline)

	s.bot.Handle(ctx, button(from, chat.ButtonData(actDirection, choiceOutflow)))
	s.bot.Handle(ctx, button(from, chat.ButtonData(actCategory, s.itemID(taxmodels.KindCategory, "Заправка"))))
	s.bot.Handle(ctx, button(from, chat.ButtonData(actCurrency, choiceForeign)))
	s.Equal(msgAskAmount, s.transport.lastTo(from).Text)

	s.bot.Handle(ctx, text(from, "abc"))
	s.Equal(msgInvalidAmount, s.transport.lastTo(from).Text)
	s.bot.Handle(ctx, text(from, "1 500,50"))

	s.bot.Handle(ctx, button(from, chat.ButtonData(actPayType, s.itemID(taxmodels.KindPayType, "Naxt"))))
	s.bot.Handle(ctx, text(from, "ijara"))
	s.Contains(s.transport.lastTo(from).Text, msgConfirmEntry)
	s.Equal(confirmKeyboard, s.transport.lastTo(from).Inline)
}

func (s *BotSuite) TestEntryFlowAppendsOneRow() {
	s.completeEntry(approvedID)
	s.bot.Handle(context.Background(), button(approvedID, chat.ButtonData(actConfirm, choiceYes)))

	s.Require().Equal(1, s.sheet.count())
	row := s.sheet.rows[0]
	s.Equal("1500.5", row[ledgermodels.ColForeignAmount])
	s.Empty(row[ledgermodels.ColLocalAmount])
	s.Equal("Chiqim", row[ledgermodels.ColDirection])
	s.Equal("Заправка", row[ledgermodels.ColCategory])
	s.Equal("Naxt", row[ledgermodels.ColPayType])
	s.Equal("ijara", row[ledgermodels.ColComment])
	s.Equal("Ana", row[ledgermodels.ColUser])
	s.Equal("3/14/2026", row[ledgermodels.ColDate])
	s.Contains(s.transport.lastEdit().Text, "Qoldiqlar")

	_, ok, err := s.conversations.Get(context.Background(), approvedID)
	s.Require().NoError(err)
	s.False(ok)

	s.Run("a second confirm finds no form", func() {
		s.bot.Handle(context.Background(), button(approvedID, chat.ButtonData(actConfirm, choiceYes)))
		s.Equal(1, s.sheet.count())
		s.Equal(msgStaleButton, s.transport.lastAnswer().text)
	})
}

func (s *BotSuite) TestEntryCancelled() {
	s.completeEntry(approvedID)
	s.bot.Handle(context.Background(), button(approvedID, chat.ButtonData(actConfirm, choiceNo)))

	s.Zero(s.sheet.count())
	s.Equal(msgEntryCancelled, s.transport.lastEdit().Text)
}

func (s *BotSuite) TestEntryTransientFailureKeepsForm() {
	s.sheet.appendErrs = []error{sentinel.ErrUnavailable}
	s.completeEntry(approvedID)

	s.bot.Handle(context.Background(), button(approvedID, chat.ButtonData(actConfirm, choiceYes)))
	s.Zero(s.sheet.count())
	s.Equal(msgLedgerRetry, s.transport.lastTo(approvedID).Text)

	s.bot.Handle(context.Background(), button(approvedID, chat.ButtonData(actConfirm, choiceYes)))
	s.Equal(1, s.sheet.count())
}

func (s *BotSuite) TestEntryConfigFailureDropsForm() {
	s.sheet.appendErrs = []error{sentinel.ErrMisconfigured}
	s.completeEntry(approvedID)

	s.bot.Handle(context.Background(), button(approvedID, chat.ButtonData(actConfirm, choiceYes)))
	s.Equal(msgLedgerConfig("@operator"), s.transport.lastTo(approvedID).Text)

	_, ok, err := s.conversations.Get(context.Background(), approvedID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *BotSuite) TestStaleEntryButtons() {
	ctx := context.Background()
	s.bot.Handle(ctx, button(approvedID, chat.ButtonData(actCurrency, choiceLocal)))
	s.Equal(msgStaleButton, s.transport.lastAnswer().text)

	s.bot.Handle(ctx, command(approvedID, "entry", ""))
	s.bot.Handle(ctx, button(approvedID, chat.ButtonData(actCurrency, choiceLocal)))
	s.Equal(msgStaleButton, s.transport.lastAnswer().text, "currency before direction")
}

func (s *BotSuite) TestCommandAbandonsForm() {
	ctx := context.Background()
	s.bot.Handle(ctx, command(approvedID, "entry", ""))
	s.bot.Handle(ctx, command(approvedID, "start", ""))

	_, ok, err := s.conversations.Get(ctx, approvedID)
	s.Require().NoError(err)
	s.False(ok)

	s.bot.Handle(ctx, text(approvedID, "hello"))
	s.Equal(msgUnknownText, s.transport.lastTo(approvedID).Text)
}

func (s *BotSuite) TestOverview() {
	s.sheet.rows = [][]string{{"3/1/2026", "", "", "500", "Kirim", "Naqd", "Ofis", "", "", "", "Ana"}}
	s.bot.Handle(context.Background(), text(approvedID, labelAll))

	out := s.transport.lastTo(approvedID).Text
	s.Contains(out, "<b>1. 3/1/2026</b>")
	s.Contains(out, "Kategoriya:</b> Ofis")
	s.Contains(out, "Umumiy qoldiq")
}

func (s *BotSuite) TestLongReplyCarriesKeyboardOnce() {
	const who int64 = 4242
	s.bot.reply(context.Background(), chat.Action{SenderID: who}, chat.Message{
		Text:   strings.Repeat("qator\n", 1000),
		Inline: [][]chat.Button{{{Text: "Ha", Data: "confirm_yes"}}},
	})

	parts := s.transport.allTo(who)
	s.Require().Len(parts, 2)
	s.Empty(parts[0].Inline)
	s.Empty(parts[0].ReplyKeyboard)
	s.Len(parts[1].Inline, 1)
}

func (s *BotSuite) TestAdminCommands() {
	ctx := context.Background()

	s.Run("non-admin is refused", func() {
		s.bot.Handle(ctx, command(approvedID, "pending_users", ""))
		s.Equal(msgAdminOnly, s.transport.lastTo(approvedID).Text)
	})

	s.Run("add user with a multi-word name", func() {
		s.bot.Handle(ctx, command(adminID, "add_user", "300 Ali Valiyev +998901112233"))
		s.Contains(s.transport.lastTo(adminID).Text, "Ali Valiyev")
		status, err := s.directory.Status(ctx, 300)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, status)
	})

	s.Run("add user twice", func() {
		s.bot.Handle(ctx, command(adminID, "add_user", "300 Ali +998901112233"))
		s.Contains(s.transport.lastTo(adminID).Text, "allaqachon mavjud")
	})

	s.Run("add user usage", func() {
		s.bot.Handle(ctx, command(adminID, "add_user", "300"))
		s.Equal(msgAddUserUsage, s.transport.lastTo(adminID).Text)
		s.bot.Handle(ctx, command(adminID, "add_user", "abc Ali +998901112233"))
		s.Equal(msgUserIDNotNumber, s.transport.lastTo(adminID).Text)
	})

	s.Run("block through the picker", func() {
		s.bot.Handle(ctx, command(adminID, "block_user", ""))
		picker := s.transport.lastTo(adminID)
		s.Equal(msgChooseToBlock, picker.Text)
		s.Require().NotEmpty(picker.Inline)

		s.bot.Handle(ctx, button(adminID, chat.ButtonData(actBlockUser, approvedID)))
		s.Contains(s.transport.lastEdit().Text, "bloklandi")
		status, err := s.directory.Status(ctx, approvedID)
		s.Require().NoError(err)
		s.Equal(models.StatusDenied, status)
	})

	s.Run("debug listing", func() {
		s.bot.Handle(ctx, command(adminID, "debug_db", ""))
		s.Contains(s.transport.lastTo(adminID).Text, "Jami foydalanuvchilar: 2")
	})
}

func (s *BotSuite) TestTaxonomyEditing() {
	ctx := context.Background()

	s.bot.Handle(ctx, command(adminID, "add_category", ""))
	s.bot.Handle(ctx, text(adminID, "Reklama"))
	s.Contains(s.transport.lastTo(adminID).Text, "qo'shildi: Reklama")

	s.bot.Handle(ctx, command(adminID, "add_category", ""))
	s.bot.Handle(ctx, text(adminID, "Reklama"))
	s.Equal(msgNameTaken, s.transport.lastTo(adminID).Text)

	id := s.itemID(taxmodels.KindCategory, "Reklama")
	s.bot.Handle(ctx, command(adminID, "edit_category", ""))
	s.bot.Handle(ctx, button(adminID, chat.ButtonData(actEditCategory, id)))
	s.bot.Handle(ctx, text(adminID, "Marketing"))
	s.Contains(s.transport.lastTo(adminID).Text, "Reklama → Marketing")

	s.bot.Handle(ctx, button(adminID, chat.ButtonData(actDelCategory, id)))
	s.Contains(s.transport.lastEdit().Text, "o'chirildi: Marketing")

	s.bot.Handle(ctx, button(adminID, chat.ButtonData(actDelCategory, id)))
	s.Equal(answered{text: msgItemNotFound, alert: true}, s.transport.lastAnswer())

	s.Run("non-admin taxonomy button", func() {
		s.bot.Handle(ctx, button(approvedID, chat.ButtonData(actDelPayType, 1)))
		s.Equal(answered{text: msgAdminOnly, alert: true}, s.transport.lastAnswer())
	})
}

// panicLedger fails the way a programming error would.
type panicLedger struct{ Ledger }

func (panicLedger) Overview(context.Context) (ledgermodels.Overview, error) {
	panic("boom")
}

func (s *BotSuite) TestPanicIsRecovered() {
	svc := s.svc
	svc.Ledger = panicLedger{}
	b, err := New(s.transport, svc, WithLogger(tu.DiscardLogger()), WithMetrics(s.metrics))
	s.Require().NoError(err)

	s.NotPanics(func() {
		b.Handle(context.Background(), command(approvedID, "all", ""))
	})
	s.Equal(1.0, promtest.ToFloat64(s.metrics.HandlerPanics))

	b.Handle(context.Background(), command(approvedID, "start", ""))
	s.Equal(msgWelcome, s.transport.lastTo(approvedID).Text)
}

func (s *BotSuite) TestRunDrainsUpdates() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.bot.Run(ctx) }()

	for i := range 5 {
		s.transport.updates <- command(int64(600+i), "start", "")
	}
	close(s.transport.updates)

	select {
	case err := <-done:
		s.Require().NoError(err)
	case <-time.After(5 * time.Second):
		s.FailNow("Run did not return after the update channel closed")
	}
	for i := range 5 {
		s.Equal(msgNotRegistered, s.transport.lastTo(int64(600+i)).Text)
	}
}

func (s *BotSuite) TestCancelledContextStillFinishes() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.bot.Handle(ctx, command(approvedID, "start", ""))
	s.Equal(msgWelcome, s.transport.lastTo(approvedID).Text)
}

var errDown = errors.New("down")

// failingConversations refuses every read.
type failingConversations struct{ conversation.Store }

func (failingConversations) Get(context.Context, int64) (conversation.State, bool, error) {
	return conversation.State{}, false, errDown
}

func (failingConversations) Clear(context.Context, int64) error { return errDown }

func (s *BotSuite) TestConversationStoreFailure() {
	svc := s.svc
	svc.Conversations = failingConversations{}
	b, err := New(s.transport, svc, WithLogger(tu.DiscardLogger()))
	s.Require().NoError(err)

	b.Handle(context.Background(), text(approvedID, "100"))
	s.True(strings.HasPrefix(s.transport.lastTo(approvedID).Text, "❌"))
}
