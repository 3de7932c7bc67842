package audit

import "time"

// EventCategory classifies audit events by their primary purpose so sinks can
// route or retain them differently.
type EventCategory string

const (
	// CategoryAccess covers changes to who may use the bot: registrations,
	// reviewer decisions, admin-created users.
	CategoryAccess EventCategory = "access"

	// CategoryLedger covers writes to the external ledger.
	CategoryLedger EventCategory = "ledger"

	// CategoryOperations covers routine admin maintenance such as taxonomy edits.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from services to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID          string
	Category    EventCategory
	Timestamp   time.Time
	Action      string
	RequesterID int64
	// ActorID is the administrator who acted on RequesterID's behalf, zero
	// when the requester acted themselves.
	ActorID  int64
	Subject  string
	Decision string
	Reason   string
	UpdateID string
}

type AuditEvent string

const (
	EventRegistrationSubmitted AuditEvent = "registration_submitted"
	EventRequesterApproved     AuditEvent = "requester_approved"
	EventRequesterDenied       AuditEvent = "requester_denied"
	EventRequesterAdded        AuditEvent = "requester_added"
	EventLedgerEntryAppended   AuditEvent = "ledger_entry_appended"
	EventTaxonomyChanged       AuditEvent = "taxonomy_changed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventRegistrationSubmitted: CategoryAccess,
	EventRequesterApproved:     CategoryAccess,
	EventRequesterDenied:       CategoryAccess,
	EventRequesterAdded:        CategoryAccess,
	EventLedgerEntryAppended:   CategoryLedger,
	EventTaxonomyChanged:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
