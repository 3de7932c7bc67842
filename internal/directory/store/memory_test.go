package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"ledgerbot/internal/directory/models"
	"ledgerbot/pkg/platform/sentinel"
	"ledgerbot/pkg/requestcontext"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func at(ctx context.Context, minute int) context.Context {
	return requestcontext.WithTime(ctx, time.Date(2026, 1, 1, 10, minute, 0, 0, time.UTC))
}

func (s *InMemoryStoreSuite) TestStatusOfUnknownIsUnregistered() {
	status, err := s.store.Status(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(models.StatusUnregistered, status)

	_, err = s.store.Get(s.ctx, 1)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestUpsertPending() {
	s.Run("first call creates a pending record", func() {
		res, err := s.store.UpsertPending(at(s.ctx, 0), 10, "Ana", "+998901234567")
		s.Require().NoError(err)
		s.Equal(models.Created, res)

		r, err := s.store.Get(s.ctx, 10)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, r.Status)
		s.Equal("Ana", r.Name)
	})

	s.Run("second call leaves the record unchanged", func() {
		res, err := s.store.UpsertPending(at(s.ctx, 5), 10, "Other", "+10000000000")
		s.Require().NoError(err)
		s.Equal(models.AlreadyPresent, res)

		r, err := s.store.Get(s.ctx, 10)
		s.Require().NoError(err)
		s.Equal("Ana", r.Name)
	})

	s.Run("does not resurrect a denied requester", func() {
		_, err := s.store.SetStatus(s.ctx, 10, models.StatusDenied)
		s.Require().NoError(err)

		res, err := s.store.UpsertPending(s.ctx, 10, "Ana", "+998901234567")
		s.Require().NoError(err)
		s.Equal(models.AlreadyPresent, res)

		status, err := s.store.Status(s.ctx, 10)
		s.Require().NoError(err)
		s.Equal(models.StatusDenied, status)
	})
}

func (s *InMemoryStoreSuite) TestUpsertPendingConcurrent() {
	const goroutines = 50
	var wg sync.WaitGroup
	var created atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.store.UpsertPending(s.ctx, 77, "Ana", "+998901234567")
			s.NoError(err)
			if res == models.Created {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	n, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *InMemoryStoreSuite) TestSetStatus() {
	s.Run("unknown requester", func() {
		_, err := s.store.SetStatus(s.ctx, 404, models.StatusApproved)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns previous status", func() {
		_, err := s.store.UpsertPending(s.ctx, 5, "Bob", "+998901111111")
		s.Require().NoError(err)

		prev, err := s.store.SetStatus(s.ctx, 5, models.StatusApproved)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, prev)

		prev, err = s.store.SetStatus(s.ctx, 5, models.StatusApproved)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, prev)
	})

	s.Run("rejects a move back to pending", func() {
		prev, err := s.store.SetStatus(s.ctx, 5, models.StatusPending)
		s.ErrorIs(err, sentinel.ErrInvalidState)
		s.Equal(models.StatusApproved, prev)

		status, err := s.store.Status(s.ctx, 5)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, status)
	})
}

func (s *InMemoryStoreSuite) TestListByStatusNewestFirst() {
	_, _ = s.store.UpsertPending(at(s.ctx, 1), 1, "Old", "+998900000001")
	_, _ = s.store.UpsertPending(at(s.ctx, 3), 3, "New", "+998900000003")
	_, _ = s.store.UpsertPending(at(s.ctx, 2), 2, "Mid", "+998900000002")
	_, _ = s.store.SetStatus(s.ctx, 2, models.StatusApproved)

	pending, err := s.store.ListByStatus(s.ctx, models.StatusPending)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(int64(3), pending[0].ID)
	s.Equal(int64(1), pending[1].ID)

	approved, err := s.store.ListByStatus(s.ctx, models.StatusApproved)
	s.Require().NoError(err)
	s.Require().Len(approved, 1)
	s.Equal("Mid", approved[0].Name)
}

func (s *InMemoryStoreSuite) TestCreateApproved() {
	err := s.store.CreateApproved(s.ctx, models.Requester{ID: 9, Name: "Admin Added", Contact: "+998909999999"})
	s.Require().NoError(err)

	status, err := s.store.Status(s.ctx, 9)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, status)

	err = s.store.CreateApproved(s.ctx, models.Requester{ID: 9, Name: "Again"})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestRecent() {
	for i := range 7 {
		_, _ = s.store.UpsertPending(at(s.ctx, i), int64(i+1), "User", "+998900000000")
	}

	recent, err := s.store.Recent(s.ctx, 5)
	s.Require().NoError(err)
	s.Require().Len(recent, 5)
	s.Equal(int64(7), recent[0].ID)
	s.Equal(int64(3), recent[4].ID)
}
