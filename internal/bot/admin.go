package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"ledgerbot/internal/chat"
	"ledgerbot/internal/directory/models"
	dErrors "ledgerbot/pkg/domain-errors"
)

// Buttons on the block/re-approve lists.
const (
	actBlockUser   = "blockuser"
	actApproveUser = "approveuser"
)

// replyAdminError answers a failed admin operation. Forbidden goes back as an
// alert on buttons and as a message otherwise.
func (b *Bot) replyAdminError(ctx context.Context, a chat.Action, err error, conflict string) {
	var text string
	switch dErrors.CodeOf(err) {
	case dErrors.CodeForbidden:
		text = msgAdminOnly
	case dErrors.CodeNotFound:
		text = msgUserNotFound
	case dErrors.CodeConflict:
		text = conflict
	case dErrors.CodeInvalidInput:
		text = msgAddUserUsage
	default:
		b.logger.ErrorContext(ctx, "admin operation failed", "actor_id", a.SenderID, "error", err)
		text = msgInternal
	}
	if a.Kind == chat.KindButton {
		b.answer(ctx, a, plain(text), true)
		return
	}
	b.replyText(ctx, a, text)
}

// cmdAddUser takes "<id> <name...> <phone>". The name may contain spaces.
func (b *Bot) cmdAddUser(ctx context.Context, a chat.Action) {
	if !b.admin(ctx, a) {
		return
	}
	fields := strings.Fields(a.Payload)
	if len(fields) < 3 {
		b.replyText(ctx, a, msgAddUserUsage)
		return
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		b.replyText(ctx, a, msgUserIDNotNumber)
		return
	}
	name := strings.Join(fields[1:len(fields)-1], " ")
	contact := fields[len(fields)-1]

	r, err := b.svc.Review.AddApproved(ctx, a.SenderID, id, name, contact)
	if err != nil {
		b.replyAdminError(ctx, a, err, fmt.Sprintf("❌ Foydalanuvchi %d allaqachon mavjud!", id))
		return
	}
	b.replyText(ctx, a, msgUserAdded(r))
}

func (b *Bot) cmdPendingUsers(ctx context.Context, a chat.Action) {
	rs, err := b.svc.Review.ListByStatus(ctx, a.SenderID, models.StatusPending)
	if err != nil {
		b.replyAdminError(ctx, a, err, "")
		return
	}
	if len(rs) == 0 {
		b.replyText(ctx, a, msgNoPending)
		return
	}
	b.replyText(ctx, a, requesterList("<b>⏳ Kutilayotgan so'rovlar:</b>", rs))
}

func (b *Bot) cmdUsersList(ctx context.Context, a chat.Action) {
	rs, err := b.svc.Review.ListByStatus(ctx, a.SenderID, models.StatusApproved)
	if err != nil {
		b.replyAdminError(ctx, a, err, "")
		return
	}
	if len(rs) == 0 {
		b.replyText(ctx, a, msgNoApproved)
		return
	}
	b.replyText(ctx, a, requesterList("<b>Tasdiqlangan foydalanuvchilar:</b>", rs))
}

func (b *Bot) cmdBlockUser(ctx context.Context, a chat.Action) {
	b.userPicker(ctx, a, models.StatusApproved, actBlockUser, "🚫 ", msgChooseToBlock, msgNoApproved)
}

func (b *Bot) cmdApproveUser(ctx context.Context, a chat.Action) {
	b.userPicker(ctx, a, models.StatusDenied, actApproveUser, "✅ ", msgChooseToApprove, msgNoDenied)
}

func (b *Bot) userPicker(ctx context.Context, a chat.Action, status models.Status, action, prefix, prompt, empty string) {
	rs, err := b.svc.Review.ListByStatus(ctx, a.SenderID, status)
	if err != nil {
		b.replyAdminError(ctx, a, err, "")
		return
	}
	if len(rs) == 0 {
		b.replyText(ctx, a, empty)
		return
	}
	rows := make([][]chat.Button, len(rs))
	for i, r := range rs {
		rows[i] = []chat.Button{{
			Text: fmt.Sprintf("%s%s (%d)", prefix, r.Name, r.ID),
			Data: chat.ButtonData(action, r.ID),
		}}
	}
	b.reply(ctx, a, chat.Message{Text: prompt, Inline: rows})
}

func (b *Bot) cmdDebugDB(ctx context.Context, a chat.Action) {
	d, err := b.svc.Review.Diagnostics(ctx, a.SenderID)
	if err != nil {
		b.replyAdminError(ctx, a, err, "")
		return
	}
	var sb strings.Builder
	sb.WriteString("<b>Ma'lumotlar bazasi:</b>\n")
	fmt.Fprintf(&sb, "Jami foydalanuvchilar: %d\n\n", d.Total)
	sb.WriteString("<b>Oxirgi 5 foydalanuvchi:</b>\n")
	if len(d.Recent) == 0 {
		sb.WriteString("Foydalanuvchilar yo'q\n")
	}
	for i, r := range d.Recent {
		fmt.Fprintf(&sb, "%d. ID: %d, Ism: %s, Status: %s\n", i+1, r.ID, html.EscapeString(r.Name), r.Status)
	}
	b.replyText(ctx, a, sb.String())
}

// reviewButton handles approve/reject on registration alerts and the
// block/re-approve pickers.
func (b *Bot) reviewButton(ctx context.Context, a chat.Action, action string, id int64) {
	outcome := models.StatusDenied
	if action == chat.ActionApprove || action == actApproveUser {
		outcome = models.StatusApproved
	}

	d, err := b.svc.Review.Decide(ctx, id, outcome, a.SenderID)
	if err != nil {
		b.replyAdminError(ctx, a, err, "")
		return
	}
	b.answer(ctx, a, "", false)

	var text string
	switch action {
	case chat.ActionApprove:
		text = "✅ Foydalanuvchi tasdiqlandi: "
	case chat.ActionReject:
		text = "❌ Foydalanuvchi rad etildi: "
	case actBlockUser:
		text = "🚫 Foydalanuvchi bloklandi: "
	case actApproveUser:
		text = "✅ Foydalanuvchi qayta tasdiqlandi: "
	}
	who := strconv.FormatInt(id, 10)
	if d.Requester.Name != "" {
		who = html.EscapeString(d.Requester.Name) + " (" + who + ")"
	}
	b.edit(ctx, a, chat.Text(text+who))
}

// plain strips the HTML markup used in messages for button alerts, which
// are shown as plain text.
func plain(text string) string {
	r := strings.NewReplacer("<b>", "", "</b>", "", "&lt;", "<", "&gt;", ">")
	return r.Replace(text)
}
