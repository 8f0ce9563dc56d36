package ports

import (
	"context"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

// RecordRepository is the tabular attendance store.
type RecordRepository interface {
	// FindByIdentityAndDate returns the row for (identity, date) with its
	// handle set, or domain.ErrRecordNotFound.
	FindByIdentityAndDate(ctx context.Context, identity, date string) (*domain.Record, error)
	// Append stores a new row. It returns domain.ErrRecordExists when a row
	// for the same (identity, date) is already present.
	Append(ctx context.Context, rec *domain.Record) (domain.RecordHandle, error)
	// UpdateFields writes the given cells on the row behind handle in one
	// operation. It returns domain.ErrStaleHandle when that row no longer
	// carries the handle's (identity, date).
	UpdateFields(ctx context.Context, handle domain.RecordHandle, fields domain.FieldSet) error
	// ListByIdentity returns every row of one identity.
	ListByIdentity(ctx context.Context, identity string) ([]*domain.Record, error)
}
