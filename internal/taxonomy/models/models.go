// Package models defines the two admin-managed name lists used by the entry
// form: categories and pay types.
package models

type Kind string

const (
	KindCategory Kind = "category"
	KindPayType  Kind = "pay_type"
)

func (k Kind) IsValid() bool {
	return k == KindCategory || k == KindPayType
}

// ParseKind accepts the names used in chat commands as well as the canonical
// ones.
func ParseKind(raw string) (Kind, bool) {
	switch raw {
	case "category", "categories":
		return KindCategory, true
	case "pay_type", "tolov":
		return KindPayType, true
	}
	return "", false
}

// Item is one named value. The id is what button payloads carry; the name
// is what lands in the ledger.
type Item struct {
	ID   int64
	Name string
}

var DefaultPayTypes = []string{"Plastik", "Naxt", "Perevod", "Bank"}

var DefaultCategories = []string{
	"Мижозлардан",
	"Аренда техника и инструменты",
	"Бетон тайёрлаб бериш",
	"Геология ва лойиха ишлари",
	"Геология ишлари",
	"Диз топливо для техники",
	"Дорожные расходы",
	"Заправка",
	"Коммунал и интернет",
	"Кунлик ишчи",
	"Объем усталар",
	"Перевод",
	"Ойлик ишчилар",
	"Олиб чикиб кетилган мусор",
	"Перечесления Расход",
	"Питание",
	"Прочие расходы",
	"Ремонт техники и запчасти",
	"Сотиб олинган материал",
	"Карз",
	"Сотиб олинган снос уйлар",
	"Валюта операция",
	"Хизмат (Прочие расходы)",
	"Хоз товары и инвентарь",
	"SXF Kapital",
	"Хожи Ака",
	"Эхсон",
	"Хомийлик",
}

// Defaults returns the seed list for kind.
func Defaults(kind Kind) []string {
	if kind == KindPayType {
		return DefaultPayTypes
	}
	return DefaultCategories
}
