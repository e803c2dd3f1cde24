// Package events publishes thought state transitions to Redis Streams so
// external consumers (dashboards, auditors, other engines) can follow the
// graph without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/halgrim/noema/internal/term"
	"github.com/halgrim/noema/internal/thought"
)

// Stream is the Redis Stream key all thought events land on.
const Stream = "noema:thoughts"

// Event is one thought transition on the wire.
type Event struct {
	Type      string    `json:"type"` // "changed" or "deleted"
	ThoughtID string    `json:"thought_id"`
	RootID    string    `json:"root_id,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Status    string    `json:"status,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher pushes engine deltas onto the stream. It implements the
// engine's observer interface.
type Publisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(redisURL string, logger *zap.Logger) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	logger.Info("Redis connected", zap.String("stream", Stream))
	return &Publisher{rdb: rdb, logger: logger}, nil
}

// SyncThoughts publishes one event per changed or deleted thought.
func (p *Publisher) SyncThoughts(ctx context.Context, changed []*thought.Thought, deleted []string) error {
	for _, t := range changed {
		ev := Event{
			Type:      "changed",
			ThoughtID: t.ID,
			RootID:    t.Metadata.RootID,
			Kind:      string(t.Kind),
			Status:    string(t.Status),
			Content:   term.Canonical(t.Content),
			Timestamp: time.Now().UTC(),
		}
		if err := p.publish(ctx, ev); err != nil {
			return err
		}
	}
	for _, id := range deleted {
		ev := Event{
			Type:      "deleted",
			ThoughtID: id,
			Timestamp: time.Now().UTC(),
		}
		if err := p.publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: Stream,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", Stream, err)
	}
	p.logger.Debug("event published",
		zap.String("type", ev.Type),
		zap.String("thought", ev.ThoughtID))
	return nil
}

// Subscribe tails the stream from now onward. The returned channel closes
// when the context is cancelled.
func (p *Publisher) Subscribe(ctx context.Context) <-chan *Event {
	ch := make(chan *Event, 16)

	go func() {
		defer close(ch)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := p.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{Stream, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()

			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev Event
					if json.Unmarshal([]byte(data), &ev) == nil {
						ch <- &ev
					}
				}
			}
		}
	}()

	return ch
}

// Close shuts down the Redis connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
