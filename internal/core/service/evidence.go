package service

import (
	"context"
	"strings"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

// RefResolver accepts the transport's photo reference as the stored
// evidence. Transports that need to fetch the file first plug in their own
// ports.EvidenceResolver.
type RefResolver struct{}

func (RefResolver) Resolve(_ context.Context, ev domain.Evidence) (domain.Evidence, error) {
	ev.PhotoRef = strings.TrimSpace(ev.PhotoRef)
	if ev.PhotoRef == "" && ev.Location == nil {
		return domain.Evidence{}, domain.ErrEvidenceUnavailable
	}
	return ev, nil
}
