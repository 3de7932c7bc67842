//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/suite"

	audit "ledgerbot/pkg/platform/audit"
	"ledgerbot/pkg/platform/audit/store/postgres"
	"ledgerbot/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestAuditStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.Pool)
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

type storedEvent struct {
	Category    string    `db:"category"`
	Action      string    `db:"action"`
	RecordedAt  time.Time `db:"recorded_at"`
	RequesterID int64     `db:"requester_id"`
	ActorID     int64     `db:"actor_id"`
}

func (s *AuditStoreSuite) stored(requesterID int64) []storedEvent {
	rows, err := s.postgres.Pool.Query(context.Background(), `
		SELECT category, action, recorded_at, requester_id, actor_id
		FROM audit_events WHERE requester_id = $1 ORDER BY recorded_at`, requesterID)
	s.Require().NoError(err)
	events, err := pgx.CollectRows(rows, pgx.RowToStructByName[storedEvent])
	s.Require().NoError(err)
	return events
}

func (s *AuditStoreSuite) TestAppendIsIdempotentPerID() {
	ctx := context.Background()
	event := audit.Event{
		ID:          uuid.NewString(),
		Action:      string(audit.EventRequesterApproved),
		Timestamp:   time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		RequesterID: 42,
		ActorID:     1,
		Decision:    "approved",
	}
	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event))

	events := s.stored(42)
	s.Require().Len(events, 1)
	s.Equal(string(audit.CategoryAccess), events[0].Category)
	s.Equal(int64(1), events[0].ActorID)
	s.True(event.Timestamp.Equal(events[0].RecordedAt))
}

func (s *AuditStoreSuite) TestAppendWithoutIDGetsOne() {
	ctx := context.Background()
	for i := range 2 {
		s.Require().NoError(s.store.Append(ctx, audit.Event{
			Action:      string(audit.EventLedgerEntryAppended),
			Timestamp:   time.Date(2026, 3, 14, 9, i, 0, 0, time.UTC),
			RequesterID: 100,
		}))
	}

	events := s.stored(100)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventLedgerEntryAppended), events[1].Action)
}
