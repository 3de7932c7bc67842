package bot

import (
	"fmt"
	"html"
	"strings"

	"ledgerbot/internal/access"
	"ledgerbot/internal/directory/models"
	ledgermodels "ledgerbot/internal/ledger/models"
)

// Reply-keyboard labels. Pressing one arrives as plain text.
const (
	labelAll      = "📊 Barcha ma'lumotlar"
	labelNewEntry = "➕ Yangi yozuv"
)

const (
	msgAdminOnly   = "Faqat admin uchun!"
	msgInternal    = "❌ Xatolik yuz berdi. Iltimos, keyinroq qayta urinib ko'ring."
	msgUnknownText = "Buyruqni tanlang yoki /start ni bosing."
	msgStaleButton = "Bu tugma eskirgan."
	msgNudge       = "Iltimos, /start ni bosing va botdan foydalanishni davom eting!"

	msgNotRegistered = "❌ <b>Ruxsat yo'q!</b>\n\n" +
		"Siz botdan foydalanish uchun ro'yxatdan o'tishingiz kerak.\n" +
		"Ro'yxatdan o'tish uchun /register ni bosing"
	msgPendingAccess = "⏳ <b>So'rovingiz ko'rib chiqilmoqda.</b>\n\n" +
		"Admin tasdiqlagandan so'ng botdan foydalanishingiz mumkin."
	msgAccessError = "❌ <b>Xatolik!</b>\n\n" +
		"Tizimda xatolik yuz berdi. Ro'yxatdan o'tish uchun /register ni bosing"

	msgWelcome = "🤖 <b>Botga xush kelibsiz!</b>\n\n" +
		"Mavjud buyruqlar:\n" +
		"/entry - Yangi yozuv qo'shish\n" +
		"/all - Barcha ma'lumotlarni ko'rsatish\n" +
		"/register - Ro'yxatdan o'tish"
	msgRebooted = "🔄 <b>Bot qayta ishga tushirildi!</b>\n\n" +
		"Mavjud buyruqlar:\n" +
		"/entry - Yangi yozuv qo'shish\n" +
		"/all - Barcha ma'lumotlarni ko'rsatish\n" +
		"/start - Asosiy menyu"

	msgAlreadyRegistered = "✅ Siz allaqachon ro'yxatdan o'tgansiz!"
	msgAskName           = "📝 <b>Ro'yxatdan o'tish</b>\n\n" +
		"Iltimos, to'liq ismingizni yuboring:"
	msgInvalidName = "❌ Ism juda qisqa! Iltimos, to'liq ismingizni yuboring:"
	msgAskContact  = "📞 Telefon raqamingizni yuboring:\n\n" +
		"Masalan: +998901234567"
	msgInvalidContact = "❌ Noto'g'ri telefon raqam! Iltimos, to'g'ri formatda yuboring:\n\n" +
		"Masalan: +998901234567"
	msgAlreadyPresent = "ℹ️ Sizning so'rovingiz allaqachon yuborilgan."

	msgChooseDirection = "Kirim yoki chiqimni tanlang:"
	msgChooseCategory  = "Kategoriyani tanlang:"
	msgChooseCurrency  = "Valyutani tanlang:"
	msgAskAmount       = "Summani kiriting:"
	msgInvalidAmount   = "❌ Noto'g'ri summa! Faqat musbat son kiriting:"
	msgChoosePayType   = "To'lov turini tanlang:"
	msgAskComment      = "Izoh yozing yoki o'tkazib yuboring:"
	msgConfirmEntry    = "Ma'lumotlar to'g'rimi?"
	msgEntryCancelled  = "❌ Bekor qilindi."
	msgEmptyTaxonomy   = "Ro'yxat bo'sh. Admin bilan bog'laning."
	msgLedgerRetry     = "⚠️ Jadvalga ulanib bo'lmadi. Iltimos, qayta urinib ko'ring."
	msgBalancesMissing = "✅ Yozildi, lekin qoldiqlarni olib bo'lmadi."
	msgSummaryMissing  = "❌ Umumiy qoldiq ma'lumotlarini olishda xatolik"

	msgAddUserUsage = "❌ Noto'g'ri format!\n\n" +
		"Foydalanish: /add_user &lt;user_id&gt; &lt;name&gt; &lt;phone&gt;\n" +
		"Misol: /add_user 123456789 Ali +998901234567"
	msgUserIDNotNumber = "❌ User ID raqam bo'lishi kerak!"
	msgNoPending       = "⏳ Hali birorta ham kutilayotgan so'rov yo'q."
	msgNoApproved      = "Hali birorta ham tasdiqlangan foydalanuvchi yo'q."
	msgNoDenied        = "Hali birorta ham bloklangan foydalanuvchi yo'q."
	msgChooseToBlock   = "Bloklash uchun foydalanuvchini tanlang:"
	msgChooseToApprove = "Qayta tasdiqlash uchun foydalanuvchini tanlang:"
	msgUserNotFound    = "❌ Foydalanuvchi topilmadi."
	msgNameTaken       = "❗️ Bu nom allaqachon mavjud."
	msgItemNotFound    = "❌ Topilmadi. Ro'yxat o'zgargan bo'lishi mumkin."
	msgNameInvalid     = "❌ Nom bo'sh yoki juda uzun."
)

func msgLedgerConfig(operator string) string {
	return "❌ Jadval sozlamalarida xatolik. Operator bilan bog'laning: " + html.EscapeString(operator)
}

func msgBlocked(operator string) string {
	return "❌ <b>Akkauntiz bloklangan!</b>\n\n" +
		"Sizning akkauntingiz admin tomonidan bloklangan.\n" +
		"Batafsil ma'lumot uchun admin bilan bog'laning: " + html.EscapeString(operator)
}

func msgRegistrationState(status models.Status) string {
	return fmt.Sprintf("❌ Sizning hisobingiz %s holatida. Admin bilan bog'laning.", status)
}

func msgRegistered(name, contact string) string {
	return "✅ <b>Ro'yxatdan o'tish muvaffaqiyatli!</b>\n\n" +
		"Ism: " + html.EscapeString(name) + "\n" +
		"Telefon: " + html.EscapeString(contact) + "\n\n" +
		"Admin tasdiqlashini kuting."
}

// deniedText picks the reply for a refused access decision.
func deniedText(d access.Decision, operator string) string {
	switch {
	case d.Reason == access.ReasonNotRegistered:
		return msgNotRegistered
	case d.Reason == access.ReasonInternalError:
		return msgAccessError
	case d.Status == models.StatusPending:
		return msgPendingAccess
	default:
		return msgBlocked(operator)
	}
}

func directionLabel(d ledgermodels.Direction) string {
	if d == ledgermodels.DirectionInflow {
		return "🟢 " + d.Label()
	}
	return "🔴 " + d.Label()
}

func currencyLabel(c ledgermodels.Currency) string {
	if c == ledgermodels.CurrencyForeign {
		return "💵 " + c.Label()
	}
	return "💸 " + c.Label()
}

// entrySummary renders the form for confirmation and after the append.
func entrySummary(e ledgermodels.Entry) string {
	comment := e.Comment
	if comment == "" {
		comment = "-"
	}
	var b strings.Builder
	b.WriteString("<b>Natija:</b>\n")
	fmt.Fprintf(&b, "<b>Tur:</b> %s\n", directionLabel(e.Direction))
	fmt.Fprintf(&b, "<b>Kategoriya:</b> %s\n", html.EscapeString(e.Category))
	fmt.Fprintf(&b, "<b>Valyuta:</b> %s\n", currencyLabel(e.Currency))
	fmt.Fprintf(&b, "<b>Summa:</b> %s\n", e.Amount.String())
	fmt.Fprintf(&b, "<b>To'lov turi:</b> %s\n", html.EscapeString(e.PayType))
	fmt.Fprintf(&b, "<b>Izoh:</b> %s", html.EscapeString(comment))
	if !e.RecordedAt.IsZero() {
		fmt.Fprintf(&b, "\n<b>Vaqt:</b> %s", e.RecordedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func receiptText(e ledgermodels.Entry, r ledgermodels.Receipt) string {
	var b strings.Builder
	b.WriteString(entrySummary(e))
	b.WriteString("\n\n")
	if !r.BalancesAvailable {
		b.WriteString(msgBalancesMissing)
		return b.String()
	}
	b.WriteString("💰 <b>Qoldiqlar:</b>")
	for _, f := range r.Balances {
		fmt.Fprintf(&b, "\n<b>%s:</b> %s", html.EscapeString(f.Label), html.EscapeString(f.Value))
	}
	return b.String()
}

func overviewText(ov ledgermodels.Overview) string {
	var b strings.Builder
	b.WriteString("📊 <b>SXF moliyaviy malumot</b>\n\n")
	for i, row := range ov.Rows {
		fmt.Fprintf(&b, "<b>%d. %s</b>\n", i+1, html.EscapeString(row.Title))
		for _, f := range row.Fields {
			fmt.Fprintf(&b, "   <b>%s:</b> %s\n", html.EscapeString(f.Header), html.EscapeString(f.Value))
		}
		b.WriteString("\n")
	}
	if !ov.SummaryAvailable {
		b.WriteString(msgSummaryMissing)
		return b.String()
	}
	b.WriteString("💰 <b>Umumiy qoldiq</b>\n")
	for _, f := range ov.Summary {
		fmt.Fprintf(&b, "%s : %s\n", html.EscapeString(f.Label), html.EscapeString(f.Value))
	}
	return b.String()
}

func requesterList(title string, rs []models.Requester) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	for i, r := range rs {
		fmt.Fprintf(&b, "\n%d. <b>%s</b>\n", i+1, html.EscapeString(r.Name))
		fmt.Fprintf(&b, "ID: <code>%d</code>\n", r.ID)
		fmt.Fprintf(&b, "Telefon: <code>%s</code>\n", html.EscapeString(r.Contact))
		fmt.Fprintf(&b, "Sana: %s\n", r.RegisteredAt.Format("2006-01-02 15:04"))
	}
	return b.String()
}

func msgUserAdded(r models.Requester) string {
	return "✅ Foydalanuvchi muvaffaqiyatli qo'shildi!\n\n" +
		fmt.Sprintf("ID: %d\n", r.ID) +
		"Ism: " + html.EscapeString(r.Name) + "\n" +
		"Telefon: " + html.EscapeString(r.Contact) + "\n" +
		"Status: " + string(r.Status)
}

// splitText cuts text at line boundaries so each part fits in one chat
// message. A single line longer than limit is cut by runes.
func splitText(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}
	var parts []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, string(cur))
			cur = cur[:0]
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		if len(cur)+len(r) > limit {
			flush()
		}
		for len(r) > limit {
			parts = append(parts, string(r[:limit]))
			r = r[limit:]
		}
		cur = append(cur, r...)
	}
	flush()
	return parts
}
