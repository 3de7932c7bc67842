// Package conversation holds the per-requester multi-step form state.
//
// State is a tagged variant: Kind says which form is active and exactly one
// of the typed payloads is set. A state is created by the first step of a
// form and cleared when the form completes or any command supersedes it.
package conversation

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindNone           Kind = ""
	KindRegistration   Kind = "registration"
	KindEntry          Kind = "entry"
	KindTaxonomyAdd    Kind = "taxonomy_add"
	KindTaxonomyRename Kind = "taxonomy_rename"
)

type RegistrationStep string

const (
	StepName    RegistrationStep = "name"
	StepContact RegistrationStep = "contact"
)

// Registration collects name then contact.
type Registration struct {
	Step RegistrationStep `json:"step"`
	Name string           `json:"name,omitempty"`
}

type EntryStep string

const (
	StepDirection EntryStep = "direction"
	StepCategory  EntryStep = "category"
	StepCurrency  EntryStep = "currency"
	StepAmount    EntryStep = "amount"
	StepPayType   EntryStep = "pay_type"
	StepComment   EntryStep = "comment"
	StepConfirm   EntryStep = "confirm"
)

// Entry collects one ledger entry. Direction and Currency hold the ledger
// package's wire values.
type Entry struct {
	Step      EntryStep       `json:"step"`
	Direction string          `json:"direction,omitempty"`
	Category  string          `json:"category,omitempty"`
	Currency  string          `json:"currency,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	PayType   string          `json:"pay_type,omitempty"`
	Comment   string          `json:"comment,omitempty"`
}

// TaxonomyEdit waits for a new name for a category or pay type.
type TaxonomyEdit struct {
	Target  string `json:"target"`
	ID      int64  `json:"id,omitempty"`
	OldName string `json:"old_name,omitempty"`
}

type State struct {
	Kind         Kind          `json:"kind"`
	Registration *Registration `json:"registration,omitempty"`
	Entry        *Entry        `json:"entry,omitempty"`
	Taxonomy     *TaxonomyEdit `json:"taxonomy,omitempty"`
}

var ErrMalformedState = errors.New("malformed conversation state")

func NewRegistration() State {
	return State{Kind: KindRegistration, Registration: &Registration{Step: StepName}}
}

func NewEntry() State {
	return State{Kind: KindEntry, Entry: &Entry{Step: StepDirection}}
}

func NewTaxonomyAdd(target string) State {
	return State{Kind: KindTaxonomyAdd, Taxonomy: &TaxonomyEdit{Target: target}}
}

func NewTaxonomyRename(target string, id int64, oldName string) State {
	return State{Kind: KindTaxonomyRename, Taxonomy: &TaxonomyEdit{Target: target, ID: id, OldName: oldName}}
}

// Validate checks that the payload matches the tag.
func (s State) Validate() error {
	switch s.Kind {
	case KindRegistration:
		if s.Registration == nil || s.Entry != nil || s.Taxonomy != nil {
			return ErrMalformedState
		}
	case KindEntry:
		if s.Entry == nil || s.Registration != nil || s.Taxonomy != nil {
			return ErrMalformedState
		}
	case KindTaxonomyAdd, KindTaxonomyRename:
		if s.Taxonomy == nil || s.Registration != nil || s.Entry != nil {
			return ErrMalformedState
		}
	default:
		return ErrMalformedState
	}
	return nil
}
