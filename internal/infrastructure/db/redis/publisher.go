package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
	"github.com/ant-retail/attendance-bot/internal/core/ports"
	"github.com/ant-retail/attendance-bot/internal/pkg/metrics"
)

// Publisher is the subset of the Redis client used for pub/sub.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type replyMessage struct {
	Identity string          `json:"identity"`
	Text     string          `json:"text"`
	Keyboard domain.Keyboard `json:"keyboard"`
	Buttons  []string        `json:"buttons,omitempty"`
}

// ReplyPublisher hands user replies to the chat transport over a Redis
// channel.
type ReplyPublisher struct {
	client  Publisher
	channel string
}

func NewReplyPublisher(client Publisher, channel string) *ReplyPublisher {
	return &ReplyPublisher{client: client, channel: channel}
}

func (p *ReplyPublisher) Reply(ctx context.Context, identity string, r domain.Reply) error {
	body, err := json.Marshal(replyMessage{
		Identity: identity,
		Text:     r.Text,
		Keyboard: r.Keyboard,
		Buttons:  r.Keyboard.Buttons(),
	})
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish reply: %w", err)
	}
	return nil
}

type broadcastMessage struct {
	ChatID   string              `json:"chat_id"`
	Text     string              `json:"text"`
	PhotoRef string              `json:"photo_ref,omitempty"`
	Location *domain.Coordinates `json:"location,omitempty"`
}

// BroadcastPublisher emits attendance notifications for the group chat.
type BroadcastPublisher struct {
	client  Publisher
	channel string
	chatID  string
}

func NewBroadcastPublisher(client Publisher, channel, chatID string) *BroadcastPublisher {
	return &BroadcastPublisher{client: client, channel: channel, chatID: chatID}
}

func (p *BroadcastPublisher) Emit(ctx context.Context, n ports.Notification) error {
	body, err := json.Marshal(broadcastMessage{
		ChatID:   p.chatID,
		Text:     n.Text,
		PhotoRef: n.PhotoRef,
		Location: n.Location,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	return nil
}
