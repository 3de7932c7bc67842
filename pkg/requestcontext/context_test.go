package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	ctx := context.Background()

	t.Run("zero values when unset", func(t *testing.T) {
		assert.Zero(t, Requester(ctx))
		assert.Empty(t, UpdateID(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("values round trip", func(t *testing.T) {
		fixed := time.Date(2025, 7, 30, 9, 5, 0, 0, time.UTC)
		ctx := WithTime(WithUpdateID(WithRequester(ctx, 42), "upd-1"), fixed)

		assert.Equal(t, int64(42), Requester(ctx))
		assert.Equal(t, "upd-1", UpdateID(ctx))
		assert.Equal(t, fixed, Now(ctx))
	})
}
