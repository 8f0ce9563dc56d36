package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
	"github.com/ant-retail/attendance-bot/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubKV struct {
	keys   map[string]time.Duration
	getErr error
}

func (s *stubKV) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if s.getErr != nil {
		return redis.NewIntResult(0, s.getErr)
	}
	var n int64
	for _, k := range keys {
		if _, ok := s.keys[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (s *stubKV) Set(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.StatusCmd {
	s.keys[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

type published struct {
	channel string
	body    []byte
}

type stubPublisher struct {
	err  error
	msgs []published
}

func (p *stubPublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	if p.err != nil {
		return redis.NewIntResult(0, p.err)
	}
	p.msgs = append(p.msgs, published{channel: channel, body: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

type stubStream struct {
	reads   [][]redis.XStream
	cursors []string
	acked   []string
	cancel  context.CancelFunc
}

func (s *stubStream) XGroupCreateMkStream(context.Context, string, string, string) *redis.StatusCmd {
	return redis.NewStatusResult("", errors.New("BUSYGROUP Consumer Group name already exists"))
}

func (s *stubStream) XReadGroup(_ context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	s.cursors = append(s.cursors, a.Streams[1])
	if len(s.reads) == 0 {
		s.cancel()
		return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
	}
	next := s.reads[0]
	s.reads = s.reads[1:]
	return redis.NewXStreamSliceCmdResult(next, nil)
}

func (s *stubStream) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	s.acked = append(s.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

type captureQueue struct {
	err     error
	actions []domain.Action
}

func (q *captureQueue) Enqueue(_ context.Context, a domain.Action) error {
	if q.err != nil {
		return q.err
	}
	q.actions = append(q.actions, a)
	return nil
}

func entry(id, payload string) redis.XMessage {
	return redis.XMessage{ID: id, Values: map[string]interface{}{payloadField: payload}}
}

// ---------------------------------------------------------------------------
// Dedup
// ---------------------------------------------------------------------------

func TestDedupChecker_MarkThenDuplicate(t *testing.T) {
	kv := &stubKV{keys: map[string]time.Duration{}}
	d := NewDedupChecker(kv)
	ctx := context.Background()

	dup, err := d.IsDuplicate(ctx, "42", "upd-1")
	if err != nil || dup {
		t.Fatalf("expected fresh action, got dup=%v err=%v", dup, err)
	}
	if err := d.Mark(ctx, "42", "upd-1"); err != nil {
		t.Fatal(err)
	}
	if ttl := kv.keys["dedup:action:42:upd-1"]; ttl != DedupTTL {
		t.Errorf("expected key with TTL %s, got %v", DedupTTL, kv.keys)
	}
	if dup, _ := d.IsDuplicate(ctx, "42", "upd-1"); !dup {
		t.Error("expected duplicate after mark")
	}
	if dup, _ := d.IsDuplicate(ctx, "7", "upd-1"); dup {
		t.Error("same action id from another identity is not a duplicate")
	}
}

func TestDedupChecker_Error(t *testing.T) {
	d := NewDedupChecker(&stubKV{getErr: errors.New("conn refused")})
	if _, err := d.IsDuplicate(context.Background(), "42", "upd-1"); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// Publishers
// ---------------------------------------------------------------------------

func TestReplyPublisher(t *testing.T) {
	p := &stubPublisher{}
	err := NewReplyPublisher(p, "replies").Reply(context.Background(), "42", domain.Reply{
		Text: "hello", Keyboard: domain.KeyboardMenu,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(p.msgs) != 1 || p.msgs[0].channel != "replies" {
		t.Fatalf("unexpected publish: %+v", p.msgs)
	}
	var got replyMessage
	if err := json.Unmarshal(p.msgs[0].body, &got); err != nil {
		t.Fatal(err)
	}
	if got.Identity != "42" || got.Text != "hello" || got.Keyboard != domain.KeyboardMenu {
		t.Errorf("unexpected payload: %+v", got)
	}
	if len(got.Buttons) != 3 || got.Buttons[0] != domain.LabelArrived {
		t.Errorf("expected menu buttons, got %v", got.Buttons)
	}
}

func TestBroadcastPublisher(t *testing.T) {
	p := &stubPublisher{}
	b := NewBroadcastPublisher(p, "broadcast", "-100123")
	err := b.Emit(context.Background(), ports.Notification{
		Text:     "report",
		PhotoRef: "photo-1",
		Location: &domain.Coordinates{Lat: 41.3, Lng: 69.2},
	})
	if err != nil {
		t.Fatal(err)
	}
	var got broadcastMessage
	if err := json.Unmarshal(p.msgs[0].body, &got); err != nil {
		t.Fatal(err)
	}
	if got.ChatID != "-100123" || got.PhotoRef != "photo-1" || got.Location == nil || got.Location.Lat != 41.3 {
		t.Errorf("unexpected payload: %+v", got)
	}
}

func TestBroadcastPublisher_Failure(t *testing.T) {
	b := NewBroadcastPublisher(&stubPublisher{err: errors.New("conn refused")}, "broadcast", "-100123")
	err := b.Emit(context.Background(), ports.Notification{Text: "report"})
	if !errors.Is(err, domain.ErrNotificationFailed) {
		t.Fatalf("expected ErrNotificationFailed, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Action stream
// ---------------------------------------------------------------------------

func TestDecodeAction(t *testing.T) {
	a, err := decodeAction(entry("1-0", `{"identity":"42","kind":"photo_shared","value":"photo-1","sent_at":"2024-05-01T09:05:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	if a.ID != "1-0" {
		t.Errorf("entry id should stand in for a missing action id, got %q", a.ID)
	}
	if a.Kind != domain.ActionPhotoShared || a.SentAt.Hour() != 9 {
		t.Errorf("unexpected action: %+v", a)
	}

	a, _ = decodeAction(entry("2-0", `{"id":"upd-9","identity":"42","kind":"cancel"}`))
	if a.ID != "upd-9" {
		t.Errorf("expected payload id, got %q", a.ID)
	}

	bad := []redis.XMessage{
		{ID: "3-0", Values: map[string]interface{}{}},
		entry("4-0", `not json`),
		entry("5-0", `{"identity":"42","kind":"teleport"}`),
		entry("6-0", `{"kind":"text"}`),
	}
	for _, m := range bad {
		if _, err := decodeAction(m); !errors.Is(err, domain.ErrInvalidAction) {
			t.Errorf("entry %s: expected ErrInvalidAction, got %v", m.ID, err)
		}
	}
}

func TestActionStream_ReplaysPendingThenConsumes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &stubStream{
		cancel: cancel,
		reads: [][]redis.XStream{
			{{Stream: "actions", Messages: []redis.XMessage{entry("1-0", `{"identity":"42","kind":"registration_start"}`)}}},
			{},
			{{Stream: "actions", Messages: []redis.XMessage{
				entry("2-0", `{"identity":"42","kind":"text","value":"Cashier"}`),
				entry("3-0", `garbage`),
			}}},
		},
	}
	q := &captureQueue{}
	s := NewActionStream(client, StreamConfig{Stream: "actions", Group: "bot", Consumer: "c1"}, q, zerolog.Nop())

	if err := s.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantCursors := []string{"0", "0", ">", ">"}
	if len(client.cursors) != len(wantCursors) {
		t.Fatalf("expected cursors %v, got %v", wantCursors, client.cursors)
	}
	for i, c := range wantCursors {
		if client.cursors[i] != c {
			t.Errorf("read %d: expected cursor %s, got %s", i, c, client.cursors[i])
		}
	}
	if len(q.actions) != 2 || q.actions[1].Value != "Cashier" {
		t.Errorf("unexpected enqueued actions: %+v", q.actions)
	}
	if len(client.acked) != 3 {
		t.Errorf("every entry, malformed included, must be acked, got %v", client.acked)
	}
}

func TestActionStream_RefusedEntryStaysPending(t *testing.T) {
	client := &stubStream{}
	q := &captureQueue{err: errors.New("dispatcher stopped")}
	s := NewActionStream(client, StreamConfig{Stream: "actions", Group: "bot", Consumer: "c1"}, q, zerolog.Nop())

	err := s.handle(context.Background(), entry("1-0", `{"identity":"42","kind":"cancel"}`))
	if err == nil {
		t.Fatal("expected enqueue error")
	}
	if len(client.acked) != 0 {
		t.Errorf("an entry that was not enqueued must not be acked, got %v", client.acked)
	}
}
