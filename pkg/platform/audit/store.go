package audit

import "context"

// Store persists or forwards audit events. Implementations live under
// pkg/platform/audit/store.
type Store interface {
	Append(ctx context.Context, event Event) error
}
