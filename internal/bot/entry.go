package bot

import (
	"context"
	"strings"

	"ledgerbot/internal/chat"
	"ledgerbot/internal/conversation"
	ledgermodels "ledgerbot/internal/ledger/models"
	taxmodels "ledgerbot/internal/taxonomy/models"
	dErrors "ledgerbot/pkg/domain-errors"
	"ledgerbot/pkg/requestcontext"
)

// Entry form buttons. Direction and currency ids are fixed; category and
// pay type ids are taxonomy ids.
const (
	actDirection   = "dir"
	actCategory    = "cat"
	actCurrency    = "cur"
	actPayType     = "pay"
	actSkipComment = "skip"
	actConfirm     = "confirm"
)

const (
	choiceInflow  int64 = 1
	choiceOutflow int64 = 2
	choiceLocal   int64 = 1
	choiceForeign int64 = 2
	choiceNo      int64 = 0
	choiceYes     int64 = 1
)

const msgUseButtons = "Iltimos, tugmalardan birini tanlang."

var (
	directionKeyboard = [][]chat.Button{{
		{Text: directionLabel(ledgermodels.DirectionInflow), Data: chat.ButtonData(actDirection, choiceInflow)},
		{Text: directionLabel(ledgermodels.DirectionOutflow), Data: chat.ButtonData(actDirection, choiceOutflow)},
	}}
	currencyKeyboard = [][]chat.Button{{
		{Text: currencyLabel(ledgermodels.CurrencyLocal), Data: chat.ButtonData(actCurrency, choiceLocal)},
		{Text: currencyLabel(ledgermodels.CurrencyForeign), Data: chat.ButtonData(actCurrency, choiceForeign)},
	}}
	skipKeyboard    = [][]chat.Button{{{Text: "O'tkazib yuborish", Data: actSkipComment}}}
	confirmKeyboard = [][]chat.Button{{
		{Text: "✅ Ha", Data: chat.ButtonData(actConfirm, choiceYes)},
		{Text: "❌ Yo'q", Data: chat.ButtonData(actConfirm, choiceNo)},
	}}
)

func (b *Bot) cmdEntry(ctx context.Context, a chat.Action) {
	if !b.allowed(ctx, a) {
		return
	}
	if err := b.svc.Conversations.Put(ctx, a.SenderID, conversation.NewEntry()); err != nil {
		b.logger.ErrorContext(ctx, "failed to start entry form", "requester_id", a.SenderID, "error", err)
		b.replyText(ctx, a, msgInternal)
		return
	}
	b.reply(ctx, a, chat.Message{Text: msgChooseDirection, Inline: directionKeyboard})
}

// loadEntry re-checks access and returns the form in progress.
func (b *Bot) loadEntry(ctx context.Context, a chat.Action) (conversation.Entry, bool) {
	if !b.allowed(ctx, a) {
		b.clearConversation(ctx, a.SenderID)
		return conversation.Entry{}, false
	}
	st, ok, err := b.svc.Conversations.Get(ctx, a.SenderID)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to load entry form", "requester_id", a.SenderID, "error", err)
		b.answer(ctx, a, "", false)
		b.replyText(ctx, a, msgInternal)
		return conversation.Entry{}, false
	}
	if !ok || st.Kind != conversation.KindEntry {
		b.answer(ctx, a, msgStaleButton, false)
		return conversation.Entry{}, false
	}
	return *st.Entry, true
}

func (b *Bot) saveEntry(ctx context.Context, a chat.Action, form conversation.Entry) bool {
	if err := b.svc.Conversations.Put(ctx, a.SenderID, conversation.State{Kind: conversation.KindEntry, Entry: &form}); err != nil {
		b.logger.ErrorContext(ctx, "failed to save entry form", "requester_id", a.SenderID, "error", err)
		b.replyText(ctx, a, msgInternal)
		return false
	}
	return true
}

func (b *Bot) entryButton(ctx context.Context, a chat.Action, action string, id int64) {
	form, ok := b.loadEntry(ctx, a)
	if !ok {
		return
	}

	switch {
	case action == actDirection && form.Step == conversation.StepDirection:
		dir, valid := map[int64]ledgermodels.Direction{
			choiceInflow:  ledgermodels.DirectionInflow,
			choiceOutflow: ledgermodels.DirectionOutflow,
		}[id]
		if !valid {
			break
		}
		form.Direction = string(dir)
		form.Step = conversation.StepCategory
		b.settle(ctx, a, msgChooseDirection, directionLabel(dir))
		b.askTaxonomy(ctx, a, form, taxmodels.KindCategory, actCategory, msgChooseCategory)
		return

	case action == actCategory && form.Step == conversation.StepCategory:
		item, err := b.svc.Taxonomy.Get(ctx, taxmodels.KindCategory, id)
		if err != nil {
			b.taxonomyLookupFailed(ctx, a, err)
			return
		}
		form.Category = item.Name
		form.Step = conversation.StepCurrency
		if b.saveEntry(ctx, a, form) {
			b.settle(ctx, a, msgChooseCategory, item.Name)
			b.reply(ctx, a, chat.Message{Text: msgChooseCurrency, Inline: currencyKeyboard})
		}
		return

	case action == actCurrency && form.Step == conversation.StepCurrency:
		cur, valid := map[int64]ledgermodels.Currency{
			choiceLocal:   ledgermodels.CurrencyLocal,
			choiceForeign: ledgermodels.CurrencyForeign,
		}[id]
		if !valid {
			break
		}
		form.Currency = string(cur)
		form.Step = conversation.StepAmount
		if b.saveEntry(ctx, a, form) {
			b.settle(ctx, a, msgChooseCurrency, currencyLabel(cur))
			b.replyText(ctx, a, msgAskAmount)
		}
		return

	case action == actPayType && form.Step == conversation.StepPayType:
		item, err := b.svc.Taxonomy.Get(ctx, taxmodels.KindPayType, id)
		if err != nil {
			b.taxonomyLookupFailed(ctx, a, err)
			return
		}
		form.PayType = item.Name
		form.Step = conversation.StepComment
		if b.saveEntry(ctx, a, form) {
			b.settle(ctx, a, msgChoosePayType, item.Name)
			b.reply(ctx, a, chat.Message{Text: msgAskComment, Inline: skipKeyboard})
		}
		return

	case action == actSkipComment && form.Step == conversation.StepComment:
		form.Comment = ""
		form.Step = conversation.StepConfirm
		if b.saveEntry(ctx, a, form) {
			b.settle(ctx, a, msgAskComment, "-")
			b.askConfirm(ctx, a, form)
		}
		return

	case action == actConfirm && form.Step == conversation.StepConfirm:
		b.answer(ctx, a, "", false)
		if id == choiceYes {
			b.submitEntry(ctx, a, form)
			return
		}
		b.clearConversation(ctx, a.SenderID)
		b.edit(ctx, a, chat.Text(msgEntryCancelled))
		return
	}
	b.answer(ctx, a, msgStaleButton, false)
}

func (b *Bot) entryText(ctx context.Context, a chat.Action, form conversation.Entry) {
	if !b.allowed(ctx, a) {
		b.clearConversation(ctx, a.SenderID)
		return
	}
	text := strings.TrimSpace(a.Payload)

	switch form.Step {
	case conversation.StepAmount:
		amount, err := ledgermodels.ParseAmount(text)
		if err != nil {
			b.replyText(ctx, a, msgInvalidAmount)
			return
		}
		form.Amount = amount
		form.Step = conversation.StepPayType
		b.askTaxonomy(ctx, a, form, taxmodels.KindPayType, actPayType, msgChoosePayType)
	case conversation.StepComment:
		form.Comment = text
		form.Step = conversation.StepConfirm
		if b.saveEntry(ctx, a, form) {
			b.askConfirm(ctx, a, form)
		}
	default:
		b.replyText(ctx, a, msgUseButtons)
	}
}

// askTaxonomy saves the form and offers the taxonomy items as buttons. An
// empty list ends the form.
func (b *Bot) askTaxonomy(ctx context.Context, a chat.Action, form conversation.Entry, kind taxmodels.Kind, action, prompt string) {
	items, err := b.svc.Taxonomy.List(ctx, kind)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to list taxonomy", "kind", kind, "error", err)
		b.replyText(ctx, a, msgInternal)
		return
	}
	if len(items) == 0 {
		b.clearConversation(ctx, a.SenderID)
		b.replyText(ctx, a, msgEmptyTaxonomy)
		return
	}
	if !b.saveEntry(ctx, a, form) {
		return
	}
	b.reply(ctx, a, chat.Message{Text: prompt, Inline: itemKeyboard(items, action, "")})
}

func (b *Bot) askConfirm(ctx context.Context, a chat.Action, form conversation.Entry) {
	b.reply(ctx, a, chat.Message{
		Text:   entrySummary(toLedgerEntry(form, a.SenderID)) + "\n\n" + msgConfirmEntry,
		Inline: confirmKeyboard,
	})
}

// submitEntry clears the form before appending so a second press of the
// confirm button finds nothing to submit. A transient failure restores the
// form so the requester can confirm again.
func (b *Bot) submitEntry(ctx context.Context, a chat.Action, form conversation.Entry) {
	b.clearConversation(ctx, a.SenderID)
	entry := toLedgerEntry(form, a.SenderID)
	entry.RecordedAt = requestcontext.Now(ctx)

	receipt, err := b.svc.Ledger.Append(ctx, entry)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeLedgerUnavailable) {
			b.saveEntry(ctx, a, form)
			b.reply(ctx, a, chat.Message{Text: msgLedgerRetry, Inline: confirmKeyboard})
			return
		}
		b.replyLedgerError(ctx, a, err)
		return
	}
	b.edit(ctx, a, chat.Text(receiptText(entry, receipt)))
}

// settle replaces an answered keyboard with the choice made, so old buttons
// cannot be pressed again.
func (b *Bot) settle(ctx context.Context, a chat.Action, prompt, choice string) {
	b.answer(ctx, a, "", false)
	if a.MessageRef.MessageID == 0 {
		return
	}
	if err := b.transport.Edit(ctx, a.MessageRef, chat.Text(prompt+" "+choice)); err != nil {
		b.logger.DebugContext(ctx, "failed to settle keyboard", "error", err)
	}
}

func (b *Bot) taxonomyLookupFailed(ctx context.Context, a chat.Action, err error) {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		b.answer(ctx, a, msgItemNotFound, true)
		return
	}
	b.logger.ErrorContext(ctx, "taxonomy lookup failed", "error", err)
	b.answer(ctx, a, "", false)
	b.replyText(ctx, a, msgInternal)
}

func toLedgerEntry(form conversation.Entry, submitter int64) ledgermodels.Entry {
	return ledgermodels.Entry{
		Direction:   ledgermodels.Direction(form.Direction),
		Category:    form.Category,
		Currency:    ledgermodels.Currency(form.Currency),
		Amount:      form.Amount,
		PayType:     form.PayType,
		Comment:     form.Comment,
		SubmitterID: submitter,
	}
}

// itemKeyboard lays items out two per row.
func itemKeyboard(items []taxmodels.Item, action, prefix string) [][]chat.Button {
	var rows [][]chat.Button
	for i := 0; i < len(items); i += 2 {
		var row []chat.Button
		for _, it := range items[i:min(i+2, len(items))] {
			row = append(row, chat.Button{Text: prefix + it.Name, Data: chat.ButtonData(action, it.ID)})
		}
		rows = append(rows, row)
	}
	return rows
}
