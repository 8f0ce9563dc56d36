package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

const (
	streamBatch   = 64
	streamBlock   = 5 * time.Second
	payloadField  = "payload"
	retryInterval = time.Second
)

// StreamClient is the subset of the Redis client used to consume actions.
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Enqueuer accepts decoded actions for processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, a domain.Action) error
}

// StreamConfig names the stream, consumer group and consumer.
type StreamConfig struct {
	Stream   string
	Group    string
	Consumer string
}

// actionMessage is the JSON payload the chat transport writes to the stream.
type actionMessage struct {
	ID       string              `json:"id"`
	Identity string              `json:"identity"`
	Kind     string              `json:"kind"`
	Value    string              `json:"value"`
	Location *domain.Coordinates `json:"location,omitempty"`
	SentAt   *time.Time          `json:"sent_at,omitempty"`
}

// ActionStream reads user actions from a Redis Stream consumer group and
// hands them to an Enqueuer. Entries are acknowledged once enqueued.
type ActionStream struct {
	client StreamClient
	cfg    StreamConfig
	queue  Enqueuer
	log    zerolog.Logger
}

func NewActionStream(client StreamClient, cfg StreamConfig, queue Enqueuer, log zerolog.Logger) *ActionStream {
	return &ActionStream{client: client, cfg: cfg, queue: queue, log: log}
}

// Run consumes until ctx is cancelled. Entries left pending by an earlier
// run of this consumer, or by a failed batch, are replayed first.
func (s *ActionStream) Run(ctx context.Context) error {
	if err := s.ensureGroup(ctx); err != nil {
		return err
	}
	s.log.Info().Str("stream", s.cfg.Stream).Str("group", s.cfg.Group).Msg("action stream consumer started")

	cursor := "0"
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := s.poll(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error().Err(err).Msg("action stream read failed")
			cursor = "0"
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryInterval):
			}
			continue
		}
		// Pending replay ends on the first empty read.
		if cursor == "0" && n == 0 {
			cursor = ">"
		}
	}
}

func (s *ActionStream) ensureGroup(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// poll reads one batch starting at cursor and returns the number of entries
// handled.
func (s *ActionStream) poll(ctx context.Context, cursor string) (int, error) {
	args := &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, cursor},
		Count:    streamBatch,
	}
	if cursor == ">" {
		args.Block = streamBlock
	}

	streams, err := s.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n := 0
	for _, st := range streams {
		for _, msg := range st.Messages {
			if err := s.handle(ctx, msg); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (s *ActionStream) handle(ctx context.Context, msg redis.XMessage) error {
	a, err := decodeAction(msg)
	if err != nil {
		// Undecodable entries are acknowledged so they do not block the group.
		s.log.Warn().Err(err).Str("entry_id", msg.ID).Msg("dropping malformed action")
	} else if err := s.queue.Enqueue(ctx, a); err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.ID, err)
	}
	if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", msg.ID, err)
	}
	return nil
}

// decodeAction parses a stream entry. The entry id stands in for the action
// id when the payload carries none, so redeliveries still dedupe.
func decodeAction(msg redis.XMessage) (domain.Action, error) {
	raw, ok := msg.Values[payloadField].(string)
	if !ok {
		return domain.Action{}, fmt.Errorf("%w: missing %q field", domain.ErrInvalidAction, payloadField)
	}
	var m actionMessage
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return domain.Action{}, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err)
	}

	a := domain.Action{
		ID:       m.ID,
		Identity: m.Identity,
		Kind:     domain.ActionKind(m.Kind),
		Value:    m.Value,
		Location: m.Location,
	}
	if a.ID == "" {
		a.ID = msg.ID
	}
	if m.SentAt != nil {
		a.SentAt = *m.SentAt
	}
	if err := a.Validate(); err != nil {
		return domain.Action{}, err
	}
	return a, nil
}
