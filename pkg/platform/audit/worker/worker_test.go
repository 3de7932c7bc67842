package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	audit "ledgerbot/pkg/platform/audit"
	tu "ledgerbot/pkg/testutil"
)

type flakyStore struct {
	mu     sync.Mutex
	failOn int64
	seen   []int64
}

func (s *flakyStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, event.RequesterID)
	if event.RequesterID == s.failOn {
		return errors.New("sink down")
	}
	return nil
}

func TestWorker_KeepsDrainingAfterFailedAppend(t *testing.T) {
	store := &flakyStore{failOn: 2}
	inbox := make(chan audit.Event, 3)
	for id := range int64(3) {
		inbox <- audit.Event{RequesterID: id + 1}
	}
	close(inbox)

	NewWorker(store, inbox, tu.DiscardLogger()).Run(context.Background())

	assert.Equal(t, []int64{1, 2, 3}, store.seen)
}

func TestWorker_CancelledContextStillDrains(t *testing.T) {
	store := &flakyStore{}
	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{RequesterID: 1}
	inbox <- audit.Event{RequesterID: 2}
	close(inbox)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewWorker(store, inbox, nil).Run(ctx)

	assert.Len(t, store.seen, 2)
}
