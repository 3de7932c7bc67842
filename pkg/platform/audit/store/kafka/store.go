// Package kafka appends audit events to a Kafka topic as JSON records keyed
// by requester id, so one requester's history stays on one partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "ledgerbot/pkg/platform/audit"
)

type Store struct {
	client *kgo.Client
	topic  string
}

type record struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Action      string    `json:"action"`
	Timestamp   time.Time `json:"timestamp"`
	RequesterID int64     `json:"requester_id"`
	ActorID     int64     `json:"actor_id,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	Decision    string    `json:"decision,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	UpdateID    string    `json:"update_id,omitempty"`
}

// New connects a producer to brokers. The topic is created when missing.
func New(ctx context.Context, brokers []string, topic string) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("audit topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Store{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record{
		ID:          event.ID,
		Category:    string(event.Category),
		Action:      event.Action,
		Timestamp:   event.Timestamp,
		RequesterID: event.RequesterID,
		ActorID:     event.ActorID,
		Subject:     event.Subject,
		Decision:    event.Decision,
		Reason:      event.Reason,
		UpdateID:    event.UpdateID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(strconv.FormatInt(event.RequesterID, 10)),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Ping checks broker reachability for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() {
	s.client.Close()
}
