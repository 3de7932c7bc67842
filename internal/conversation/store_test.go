package conversation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestLifecycle() {
	_, ok, err := s.store.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.store.Put(s.ctx, 1, NewRegistration()))
	st, ok, err := s.store.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(KindRegistration, st.Kind)
	s.Equal(StepName, st.Registration.Step)

	s.Require().NoError(s.store.Clear(s.ctx, 1))
	_, ok, err = s.store.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *InMemoryStoreSuite) TestGetReturnsCopy() {
	s.Require().NoError(s.store.Put(s.ctx, 1, NewEntry()))

	st, _, err := s.store.Get(s.ctx, 1)
	s.Require().NoError(err)
	st.Entry.Amount = decimal.NewFromInt(5)
	st.Entry.Step = StepConfirm

	again, _, err := s.store.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(StepDirection, again.Entry.Step)
	s.True(again.Entry.Amount.IsZero())
}

func (s *InMemoryStoreSuite) TestRejectsMalformed() {
	err := s.store.Put(s.ctx, 1, State{Kind: KindEntry})
	s.ErrorIs(err, ErrMalformedState)

	err = s.store.Put(s.ctx, 1, State{Kind: KindRegistration, Registration: &Registration{}, Entry: &Entry{}})
	s.ErrorIs(err, ErrMalformedState)

	err = s.store.Put(s.ctx, 1, State{})
	s.ErrorIs(err, ErrMalformedState)
}

func (s *InMemoryStoreSuite) TestRequestersAreIndependent() {
	s.Require().NoError(s.store.Put(s.ctx, 1, NewRegistration()))
	s.Require().NoError(s.store.Put(s.ctx, 2, NewTaxonomyRename("category", 9, "Old")))

	s.Require().NoError(s.store.Clear(s.ctx, 1))

	st, ok, err := s.store.Get(s.ctx, 2)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(int64(9), st.Taxonomy.ID)
	s.Equal("Old", st.Taxonomy.OldName)
}
