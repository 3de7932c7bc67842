//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"ledgerbot/internal/taxonomy/models"
	"ledgerbot/internal/taxonomy/store"
	"ledgerbot/pkg/platform/sentinel"
	"ledgerbot/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "categories", "pay_types"))
}

func (s *PostgresStoreSuite) TestSeedOnlyWhenEmpty() {
	ctx := context.Background()
	n, err := s.store.SeedIfEmpty(ctx, models.KindPayType, models.DefaultPayTypes)
	s.Require().NoError(err)
	s.Equal(len(models.DefaultPayTypes), n)

	n, err = s.store.SeedIfEmpty(ctx, models.KindPayType, []string{"Other"})
	s.Require().NoError(err)
	s.Zero(n)

	items, err := s.store.List(ctx, models.KindPayType)
	s.Require().NoError(err)
	s.Len(items, len(models.DefaultPayTypes))
	s.Equal("Plastik", items[0].Name)
}

func (s *PostgresStoreSuite) TestUniqueNames() {
	ctx := context.Background()
	_, err := s.store.Add(ctx, models.KindCategory, "Питание")
	s.Require().NoError(err)
	_, err = s.store.Add(ctx, models.KindCategory, "Питание")
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestRenameAndDelete() {
	ctx := context.Background()
	a, err := s.store.Add(ctx, models.KindCategory, "A")
	s.Require().NoError(err)
	_, err = s.store.Add(ctx, models.KindCategory, "B")
	s.Require().NoError(err)

	prev, err := s.store.Rename(ctx, models.KindCategory, a.ID, "C")
	s.Require().NoError(err)
	s.Equal("A", prev.Name)

	_, err = s.store.Rename(ctx, models.KindCategory, a.ID, "B")
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.store.Rename(ctx, models.KindCategory, 12345, "D")
	s.ErrorIs(err, sentinel.ErrNotFound)

	removed, err := s.store.Delete(ctx, models.KindCategory, a.ID)
	s.Require().NoError(err)
	s.Equal("C", removed.Name)

	_, err = s.store.Get(ctx, models.KindCategory, a.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
