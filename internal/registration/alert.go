package registration

import (
	"fmt"
	"html"

	"ledgerbot/internal/chat"
	"ledgerbot/internal/directory/models"
)

// AlertComposer renders the reviewer alert for a new pending requester.
type AlertComposer func(r models.Requester) chat.Message

// DefaultAlert is the alert administrators receive, with approve and reject
// buttons keyed to the requester id.
func DefaultAlert(r models.Requester) chat.Message {
	text := "🆕 <b>Yangi ro'yxatdan o'tish!</b>\n\n" +
		fmt.Sprintf("👤 <b>Ism:</b> %s\n", html.EscapeString(r.Name)) +
		fmt.Sprintf("📞 <b>Telefon:</b> %s\n", html.EscapeString(r.Contact)) +
		fmt.Sprintf("🆔 <b>ID:</b> %d\n\n", r.ID) +
		"Tasdiqlash uchun quyidagi tugmalardan foydalaning:"
	return chat.Message{
		Text: text,
		Inline: [][]chat.Button{{
			{Text: "✅ Tasdiqlash", Data: chat.ButtonData(chat.ActionApprove, r.ID)},
			{Text: "❌ Rad etish", Data: chat.ButtonData(chat.ActionReject, r.ID)},
		}},
	}
}
