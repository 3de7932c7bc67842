package models

import "fmt"

// Column positions of the ledger sheet, A through K.
const (
	ColDate = iota
	ColTime
	ColForeignAmount
	ColLocalAmount
	ColDirection
	ColPayType
	ColCategory
	ColProjects
	ColComment
	ColMonthly
	ColUser

	RowWidth
)

// Row lays the entry out in sheet column order. The amount lands in exactly
// one of the two currency columns; projects and monthly stay blank.
func (e Entry) Row(submitterName string) []string {
	row := make([]string, RowWidth)
	t := e.RecordedAt
	row[ColDate] = fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
	row[ColTime] = t.Format("15:04")
	if e.Currency == CurrencyForeign {
		row[ColForeignAmount] = e.Amount.String()
	} else {
		row[ColLocalAmount] = e.Amount.String()
	}
	row[ColDirection] = e.Direction.Label()
	row[ColPayType] = e.PayType
	row[ColCategory] = e.Category
	row[ColComment] = e.Comment
	row[ColUser] = submitterName
	return row
}
