package ports

import (
	"context"
	"time"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
)

// AttendanceInput carries one confirmed arrival or departure.
type AttendanceInput struct {
	Session  domain.Session
	Kind     domain.AttendanceKind
	At       time.Time
	Evidence domain.Evidence
}

// AttendanceResult is returned after the record has been written.
type AttendanceResult struct {
	Date        string
	Clock       string
	WorkedHours string // empty unless a departure closed a day with an arrival
	// Created is true when the event opened the day's record.
	Created bool
	// NotifyFailed is true when the record was written but the broadcast
	// could not be delivered.
	NotifyFailed bool
}

// ProfileStats aggregates all records of one identity.
type ProfileStats struct {
	Days       int
	TotalHours float64
}

// RecordService reconciles attendance events into daily records.
type RecordService interface {
	Record(ctx context.Context, in AttendanceInput) (*AttendanceResult, error)
	Stats(ctx context.Context, identity string) (*ProfileStats, error)
}

// AttendanceService processes one inbound user action end to end.
type AttendanceService interface {
	Handle(ctx context.Context, action domain.Action) error
}
