package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ledgerbot:conversation:"

// RedisStore keeps state as JSON. Keys never expire unless a TTL is
// configured; a zero ttl leaves forms in place until a command clears them.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	latency *prometheus.HistogramVec
}

// NewRedisStore registers its latency histogram with reg.
func NewRedisStore(client *redis.Client, ttl time.Duration, reg prometheus.Registerer) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		latency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledgerbot_conversation_redis_duration_seconds",
			Help:    "Latency of conversation state operations against Redis",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"op"}),
	}
}

func key(requesterID int64) string {
	return keyPrefix + strconv.FormatInt(requesterID, 10)
}

func (s *RedisStore) observe(op string, start time.Time) {
	s.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *RedisStore) Get(ctx context.Context, requesterID int64) (State, bool, error) {
	defer s.observe("get", time.Now())
	raw, err := s.client.Get(ctx, key(requesterID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("get conversation state: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, false, fmt.Errorf("decode conversation state: %w", err)
	}
	if err := st.Validate(); err != nil {
		return State{}, false, err
	}
	return st, true, nil
}

func (s *RedisStore) Put(ctx context.Context, requesterID int64, state State) error {
	defer s.observe("put", time.Now())
	if err := state.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode conversation state: %w", err)
	}
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key(requesterID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("put conversation state: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, requesterID int64) error {
	defer s.observe("clear", time.Now())
	if err := s.client.Del(ctx, key(requesterID)).Err(); err != nil {
		return fmt.Errorf("clear conversation state: %w", err)
	}
	return nil
}
