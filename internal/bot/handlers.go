package bot

import (
	"context"
	"strings"

	"ledgerbot/internal/chat"
	"ledgerbot/internal/conversation"
	"ledgerbot/internal/registration"
	dErrors "ledgerbot/pkg/domain-errors"
)

var menuCommands = []chat.Command{
	{Name: "start", Description: "Botni boshlash"},
	{Name: "register", Description: "Ro'yxatdan o'tish"},
	{Name: "reboot", Description: "Qayta boshlash"},
	{Name: "all", Description: "Barcha ma'lumotlarni ko'rsatish"},
	{Name: "entry", Description: "Yangi yozuv qo'shish"},
}

var mainKeyboard = [][]string{{labelNewEntry, labelAll}}

// handleCommand discards any form in progress before running the command.
func (b *Bot) handleCommand(ctx context.Context, a chat.Action) {
	b.clearConversation(ctx, a.SenderID)

	switch a.Command {
	case "start":
		b.cmdMenu(ctx, a, msgWelcome)
	case "reboot":
		b.cmdMenu(ctx, a, msgRebooted)
	case "register":
		b.cmdRegister(ctx, a)
	case "all":
		b.cmdAll(ctx, a)
	case "entry":
		b.cmdEntry(ctx, a)
	case "add_user":
		b.cmdAddUser(ctx, a)
	case "pending_users":
		b.cmdPendingUsers(ctx, a)
	case "userslist":
		b.cmdUsersList(ctx, a)
	case "block_user":
		b.cmdBlockUser(ctx, a)
	case "approve_user":
		b.cmdApproveUser(ctx, a)
	case "debug_db":
		b.cmdDebugDB(ctx, a)
	case "add_category":
		b.cmdTaxonomyAdd(ctx, a, kindCategory)
	case "add_tolov":
		b.cmdTaxonomyAdd(ctx, a, kindPayType)
	case "del_category":
		b.cmdTaxonomyPick(ctx, a, kindCategory, actDelCategory, msgPickDeleteCategory)
	case "del_tolov":
		b.cmdTaxonomyPick(ctx, a, kindPayType, actDelPayType, msgPickDeletePayType)
	case "edit_category":
		b.cmdTaxonomyPick(ctx, a, kindCategory, actEditCategory, msgPickEditCategory)
	case "edit_tolov":
		b.cmdTaxonomyPick(ctx, a, kindPayType, actEditPayType, msgPickEditPayType)
	case "show_categories":
		b.cmdShowTaxonomy(ctx, a)
	default:
		b.replyText(ctx, a, msgUnknownText)
	}
}

func (b *Bot) handleText(ctx context.Context, a chat.Action) {
	switch strings.TrimSpace(a.Payload) {
	case labelAll:
		b.clearConversation(ctx, a.SenderID)
		b.cmdAll(ctx, a)
		return
	case labelNewEntry:
		b.clearConversation(ctx, a.SenderID)
		b.cmdEntry(ctx, a)
		return
	}

	st, ok, err := b.svc.Conversations.Get(ctx, a.SenderID)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to load conversation", "requester_id", a.SenderID, "error", err)
		b.replyText(ctx, a, msgInternal)
		return
	}
	if !ok {
		b.replyText(ctx, a, msgUnknownText)
		return
	}

	switch st.Kind {
	case conversation.KindRegistration:
		b.continueRegistration(ctx, a, *st.Registration)
	case conversation.KindEntry:
		b.entryText(ctx, a, *st.Entry)
	case conversation.KindTaxonomyAdd, conversation.KindTaxonomyRename:
		b.taxonomyText(ctx, a, st)
	default:
		b.replyText(ctx, a, msgUnknownText)
	}
}

func (b *Bot) handleButton(ctx context.Context, a chat.Action) {
	action, id, hasID := chat.ParseButtonData(a.Payload)
	switch action {
	case chat.ActionApprove, chat.ActionReject, actBlockUser, actApproveUser:
		if !hasID {
			b.answer(ctx, a, msgStaleButton, false)
			return
		}
		b.reviewButton(ctx, a, action, id)
	case actDelCategory, actDelPayType, actEditCategory, actEditPayType:
		if !hasID {
			b.answer(ctx, a, msgStaleButton, false)
			return
		}
		b.taxonomyButton(ctx, a, action, id)
	case actDirection, actCategory, actCurrency, actPayType, actSkipComment, actConfirm:
		b.entryButton(ctx, a, action, id)
	default:
		b.answer(ctx, a, msgStaleButton, false)
	}
}

func (b *Bot) cmdMenu(ctx context.Context, a chat.Action, text string) {
	if !b.allowed(ctx, a) {
		return
	}
	b.reply(ctx, a, chat.Message{Text: text, ReplyKeyboard: mainKeyboard})
}

func (b *Bot) cmdRegister(ctx context.Context, a chat.Action) {
	res, err := b.svc.Registration.Begin(ctx, a.SenderID)
	if err != nil {
		b.logger.ErrorContext(ctx, "registration start failed", "requester_id", a.SenderID, "error", err)
		b.replyText(ctx, a, msgInternal)
		return
	}
	b.replyRegistration(ctx, a, res)
}

func (b *Bot) continueRegistration(ctx context.Context, a chat.Action, form conversation.Registration) {
	res, err := b.svc.Registration.Continue(ctx, a.SenderID, form, a.Payload)
	if err != nil {
		b.logger.ErrorContext(ctx, "registration step failed", "requester_id", a.SenderID, "error", err)
		b.replyText(ctx, a, msgInternal)
		return
	}
	b.replyRegistration(ctx, a, res)
}

func (b *Bot) replyRegistration(ctx context.Context, a chat.Action, res registration.Result) {
	switch res.Outcome {
	case registration.OutcomeAskName:
		b.replyText(ctx, a, msgAskName)
	case registration.OutcomeAskContact:
		b.replyText(ctx, a, msgAskContact)
	case registration.OutcomeInvalidName:
		b.replyText(ctx, a, msgInvalidName)
	case registration.OutcomeInvalidContact:
		b.replyText(ctx, a, msgInvalidContact)
	case registration.OutcomeSubmitted:
		b.replyText(ctx, a, msgRegistered(res.Name, res.Contact))
	case registration.OutcomeAlreadyPresent:
		b.replyText(ctx, a, msgAlreadyPresent)
	case registration.OutcomeAlreadyApproved:
		b.replyText(ctx, a, msgAlreadyRegistered)
	case registration.OutcomeAlreadyPending, registration.OutcomeDenied:
		b.replyText(ctx, a, msgRegistrationState(res.Status))
	}
}

func (b *Bot) cmdAll(ctx context.Context, a chat.Action) {
	if !b.allowed(ctx, a) {
		return
	}
	ov, err := b.svc.Ledger.Overview(ctx)
	if err != nil {
		b.replyLedgerError(ctx, a, err)
		return
	}
	b.replyText(ctx, a, overviewText(ov))
}

func (b *Bot) replyLedgerError(ctx context.Context, a chat.Action, err error) {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeLedgerConfig:
		b.replyText(ctx, a, msgLedgerConfig(b.operator))
	case dErrors.CodeLedgerUnavailable:
		b.replyText(ctx, a, msgLedgerRetry)
	default:
		b.replyText(ctx, a, msgInternal)
	}
}
