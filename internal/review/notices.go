package review

import (
	"ledgerbot/internal/chat"
	"ledgerbot/internal/directory/models"
)

// NoticeComposer builds the message sent to a requester whose status moved
// from previous to next. Returning false sends nothing.
type NoticeComposer func(previous, next models.Status) (chat.Message, bool)

const (
	noticeApproved = "✅ <b>Tabriklaymiz!</b>\n\n" +
		"Sizning hisobingiz tasdiqlandi!\n" +
		"Endi siz botdan to'liq foydalanish mumkin."
	noticeRejected = "❌ <b>Kechirasiz!</b>\n\n" +
		"Sizning so'rovingiz rad etildi.\n" +
		"Batafsil ma'lumot uchun admin bilan bog'laning."
	noticeBlocked    = "❌ Sizga botdan foydalanishga ruxsat berilmagan. (Admin tomonidan bloklandi)"
	noticeReapproved = "✅ Sizga botdan foydalanishga yana ruxsat berildi! /start"
)

// DefaultNotice answers a pending request with the verdict, and tells an
// existing user they were blocked or let back in.
func DefaultNotice(previous, next models.Status) (chat.Message, bool) {
	if previous == next {
		return chat.Message{}, false
	}
	switch {
	case previous == models.StatusPending && next == models.StatusApproved:
		return chat.Text(noticeApproved), true
	case previous == models.StatusPending && next == models.StatusDenied:
		return chat.Text(noticeRejected), true
	case next == models.StatusDenied:
		return chat.Text(noticeBlocked), true
	case next == models.StatusApproved:
		return chat.Text(noticeReapproved), true
	}
	return chat.Message{}, false
}
