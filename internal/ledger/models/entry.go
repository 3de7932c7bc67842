// Package models holds the ledger entry and the figures read back from the
// external spreadsheet.
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionInflow  Direction = "inflow"
	DirectionOutflow Direction = "outflow"
)

// Label is the value written to the direction column.
func (d Direction) Label() string {
	switch d {
	case DirectionInflow:
		return "Kirim"
	case DirectionOutflow:
		return "Chiqim"
	default:
		return ""
	}
}

func (d Direction) IsValid() bool {
	return d == DirectionInflow || d == DirectionOutflow
}

type Currency string

const (
	CurrencyLocal   Currency = "local"
	CurrencyForeign Currency = "foreign"
)

// Label is the name shown to requesters.
func (c Currency) Label() string {
	switch c {
	case CurrencyLocal:
		return "Sum"
	case CurrencyForeign:
		return "Dollar"
	default:
		return ""
	}
}

func (c Currency) IsValid() bool {
	return c == CurrencyLocal || c == CurrencyForeign
}

var (
	ErrInvalidDirection = errors.New("direction must be inflow or outflow")
	ErrInvalidCurrency  = errors.New("currency must be local or foreign")
	ErrInvalidAmount    = errors.New("amount must be a positive number")
	ErrMissingCategory  = errors.New("category is required")
	ErrMissingPayType   = errors.New("pay type is required")
)

// Entry is one financial record. It is written once and never edited here.
type Entry struct {
	Direction   Direction
	Category    string
	Currency    Currency
	Amount      decimal.Decimal
	PayType     string
	Comment     string
	SubmitterID int64
	RecordedAt  time.Time
}

func (e Entry) Validate() error {
	var errs []error
	if !e.Direction.IsValid() {
		errs = append(errs, ErrInvalidDirection)
	}
	if !e.Currency.IsValid() {
		errs = append(errs, ErrInvalidCurrency)
	}
	if !e.Amount.IsPositive() {
		errs = append(errs, ErrInvalidAmount)
	}
	if strings.TrimSpace(e.Category) == "" {
		errs = append(errs, ErrMissingCategory)
	}
	if strings.TrimSpace(e.PayType) == "" {
		errs = append(errs, ErrMissingPayType)
	}
	return errors.Join(errs...)
}

// ParseAmount reads a user-typed amount. Spaces used as thousand separators
// are dropped and a decimal comma is accepted.
func ParseAmount(text string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '_':
			return -1
		case ',':
			return '.'
		}
		return r
	}, strings.TrimSpace(text))
	amount, err := decimal.NewFromString(cleaned)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}
