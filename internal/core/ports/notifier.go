package ports

import (
	"context"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

// Notification is a broadcast of one attendance event.
type Notification struct {
	Text     string
	PhotoRef string              // optional
	Location *domain.Coordinates // optional
}

// Notifier emits notifications to the single configured broadcast
// destination.
type Notifier interface {
	Emit(ctx context.Context, n Notification) error
}

// Replier delivers a reply to the user behind identity.
type Replier interface {
	Reply(ctx context.Context, identity string, r domain.Reply) error
}

// EvidenceResolver turns the photo reference from the transport into the
// reference that is stored and broadcast.
type EvidenceResolver interface {
	Resolve(ctx context.Context, ev domain.Evidence) (domain.Evidence, error)
}
