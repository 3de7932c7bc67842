// Package postgres keeps audit events in the audit_events table, for
// deployments without a Kafka cluster that still want a durable trail.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	audit "ledgerbot/pkg/platform/audit"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Append inserts the event. A retried event with the same id is ignored.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		id = uuid.New()
	}
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, category, action, recorded_at, requester_id, actor_id,
		                          subject, decision, reason, update_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		id, string(category), event.Action, ts, event.RequesterID, event.ActorID,
		event.Subject, event.Decision, event.Reason, event.UpdateID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}
