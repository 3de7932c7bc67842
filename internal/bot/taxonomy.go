package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	"ledgerbot/internal/chat"
	"ledgerbot/internal/conversation"
	taxmodels "ledgerbot/internal/taxonomy/models"
	dErrors "ledgerbot/pkg/domain-errors"
)

const (
	kindCategory = taxmodels.KindCategory
	kindPayType  = taxmodels.KindPayType
)

const (
	actDelCategory  = "delcat"
	actEditCategory = "editcat"
	actDelPayType   = "deltolov"
	actEditPayType  = "edittolov"
)

const (
	msgPickDeleteCategory = "O'chirish uchun kategoriya tanlang:"
	msgPickDeletePayType  = "O'chirish uchun To'lov turini tanlang:"
	msgPickEditCategory   = "Tahrirlash uchun kategoriya tanlang:"
	msgPickEditPayType    = "Tahrirlash uchun To'lov turini tanlang:"
)

// kindNoun is the Uzbek name of a taxonomy list.
func kindNoun(kind taxmodels.Kind) string {
	if kind == kindPayType {
		return "To'lov turi"
	}
	return "Kategoriya"
}

func (b *Bot) cmdTaxonomyAdd(ctx context.Context, a chat.Action, kind taxmodels.Kind) {
	if !b.admin(ctx, a) {
		return
	}
	if err := b.svc.Conversations.Put(ctx, a.SenderID, conversation.NewTaxonomyAdd(string(kind))); err != nil {
		b.logger.ErrorContext(ctx, "failed to start taxonomy add", "error", err)
		b.replyText(ctx, a, msgInternal)
		return
	}
	b.replyText(ctx, a, fmt.Sprintf("Yangi %s nomini yuboring:", strings.ToLower(kindNoun(kind))))
}

func (b *Bot) cmdTaxonomyPick(ctx context.Context, a chat.Action, kind taxmodels.Kind, action, prompt string) {
	if !b.admin(ctx, a) {
		return
	}
	items, err := b.svc.Taxonomy.List(ctx, kind)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to list taxonomy", "kind", kind, "error", err)
		b.replyText(ctx, a, msgInternal)
		return
	}
	if len(items) == 0 {
		b.replyText(ctx, a, msgEmptyTaxonomy)
		return
	}
	prefix := "✏️ "
	if action == actDelCategory || action == actDelPayType {
		prefix = "❌ "
	}
	b.reply(ctx, a, chat.Message{Text: prompt, Inline: itemKeyboard(items, action, prefix)})
}

func (b *Bot) cmdShowTaxonomy(ctx context.Context, a chat.Action) {
	if !b.admin(ctx, a) {
		return
	}
	var sb strings.Builder
	for _, kind := range []taxmodels.Kind{kindCategory, kindPayType} {
		items, err := b.svc.Taxonomy.List(ctx, kind)
		if err != nil {
			b.logger.ErrorContext(ctx, "failed to list taxonomy", "kind", kind, "error", err)
			b.replyText(ctx, a, msgInternal)
			return
		}
		fmt.Fprintf(&sb, "<b>%s (%d):</b>\n", kindNoun(kind), len(items))
		for i, it := range items {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, html.EscapeString(it.Name))
		}
		sb.WriteString("\n")
	}
	b.replyText(ctx, a, sb.String())
}

func (b *Bot) taxonomyButton(ctx context.Context, a chat.Action, action string, id int64) {
	if !b.admin(ctx, a) {
		return
	}
	kind := kindCategory
	if action == actDelPayType || action == actEditPayType {
		kind = kindPayType
	}

	switch action {
	case actDelCategory, actDelPayType:
		removed, err := b.svc.Taxonomy.Delete(ctx, a.SenderID, kind, id)
		if err != nil {
			b.taxonomyError(ctx, a, err)
			return
		}
		b.answer(ctx, a, "", false)
		b.edit(ctx, a, chat.Text(fmt.Sprintf("❌ %s o'chirildi: %s", kindNoun(kind), html.EscapeString(removed.Name))))

	case actEditCategory, actEditPayType:
		item, err := b.svc.Taxonomy.Get(ctx, kind, id)
		if err != nil {
			b.taxonomyError(ctx, a, err)
			return
		}
		if err := b.svc.Conversations.Put(ctx, a.SenderID, conversation.NewTaxonomyRename(string(kind), item.ID, item.Name)); err != nil {
			b.logger.ErrorContext(ctx, "failed to start taxonomy rename", "error", err)
			b.answer(ctx, a, "", false)
			b.replyText(ctx, a, msgInternal)
			return
		}
		b.answer(ctx, a, "", false)
		b.replyText(ctx, a, fmt.Sprintf("Yangi nomini yuboring (eski: %s):", html.EscapeString(item.Name)))
	}
}

// taxonomyText receives the name for a pending add or rename. The form is
// kept after a rejected name so the admin can try again.
func (b *Bot) taxonomyText(ctx context.Context, a chat.Action, st conversation.State) {
	if !b.admin(ctx, a) {
		b.clearConversation(ctx, a.SenderID)
		return
	}
	edit := st.Taxonomy
	kind, ok := taxmodels.ParseKind(edit.Target)
	if !ok {
		b.clearConversation(ctx, a.SenderID)
		b.replyText(ctx, a, msgInternal)
		return
	}

	if st.Kind == conversation.KindTaxonomyAdd {
		item, err := b.svc.Taxonomy.Add(ctx, a.SenderID, kind, a.Payload)
		if err != nil {
			b.taxonomyError(ctx, a, err)
			return
		}
		b.clearConversation(ctx, a.SenderID)
		b.replyText(ctx, a, fmt.Sprintf("✅ Yangi %s qo'shildi: %s", strings.ToLower(kindNoun(kind)), html.EscapeString(item.Name)))
		return
	}

	previous, current, err := b.svc.Taxonomy.Rename(ctx, a.SenderID, kind, edit.ID, a.Payload)
	if err != nil {
		b.taxonomyError(ctx, a, err)
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			b.clearConversation(ctx, a.SenderID)
		}
		return
	}
	b.clearConversation(ctx, a.SenderID)
	b.replyText(ctx, a, fmt.Sprintf("✏️ %s o'zgartirildi: %s → %s",
		kindNoun(kind), html.EscapeString(previous.Name), html.EscapeString(current.Name)))
}

func (b *Bot) taxonomyError(ctx context.Context, a chat.Action, err error) {
	var text string
	switch dErrors.CodeOf(err) {
	case dErrors.CodeForbidden:
		text = msgAdminOnly
	case dErrors.CodeConflict:
		text = msgNameTaken
	case dErrors.CodeNotFound:
		text = msgItemNotFound
	case dErrors.CodeInvalidInput:
		text = msgNameInvalid
	default:
		b.logger.ErrorContext(ctx, "taxonomy operation failed", "actor_id", a.SenderID, "error", err)
		text = msgInternal
	}
	if a.Kind == chat.KindButton {
		b.answer(ctx, a, text, true)
		return
	}
	b.replyText(ctx, a, text)
}
