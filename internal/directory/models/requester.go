package models

import (
	"strings"
	"time"
)

// Status is where a requester stands in the access lifecycle.
//
// Transitions:
//   - unregistered -> pending (registration submitted)
//   - pending -> approved | denied (reviewer decision)
//   - approved <-> denied (explicit re-block / re-approve)
//
// Nothing leaves approved or denied automatically.
type Status string

const (
	StatusUnregistered Status = "unregistered"
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusDenied       Status = "denied"
)

// ParseStatus reads a stored status. Legacy "rejected" and "blocked" rows are
// the same terminal refusal as denied; anything unknown is treated as denied
// so a corrupt row never grants access.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending
	case "approved":
		return StatusApproved
	case "unregistered", "":
		return StatusUnregistered
	default:
		return StatusDenied
	}
}

func (s Status) String() string {
	return string(s)
}

// IsDecision reports whether s is an outcome a reviewer may set.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusDenied
}

// CanTransitionTo reports whether moving from s to next is a legal step.
// Same-state moves are allowed so re-decisions are idempotent.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusUnregistered:
		return next == StatusPending || next == StatusApproved
	case StatusPending:
		return next == StatusPending || next.IsDecision()
	case StatusApproved, StatusDenied:
		return next.IsDecision()
	default:
		return false
	}
}

// Requester is one chat participant known to the directory.
type Requester struct {
	ID           int64
	Name         string
	Contact      string
	Status       Status
	RegisteredAt time.Time
}

// UpsertResult tells the caller whether UpsertPending created a record.
type UpsertResult int

const (
	Created UpsertResult = iota + 1
	AlreadyPresent
)
