package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
	"github.com/ant-retail/attendance-bot/internal/core/ports"
	"github.com/ant-retail/attendance-bot/internal/pkg/metrics"
)

// maxReconcileAttempts bounds the find → write loop when the row moves or
// another writer appends first.
const maxReconcileAttempts = 3

// Reconciler keeps exactly one record per identity per day and broadcasts
// every event written to it.
type Reconciler struct {
	repo     ports.RecordRepository
	notifier ports.Notifier
	loc      *time.Location
	log      zerolog.Logger
}

// NewReconciler returns a Reconciler that buckets events into days of loc.
// A nil loc means UTC.
func NewReconciler(repo ports.RecordRepository, notifier ports.Notifier, loc *time.Location, log zerolog.Logger) *Reconciler {
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{repo: repo, notifier: notifier, loc: loc, log: log}
}

// Record finds, creates or updates the day's record for the event, then
// emits the notification. A notification failure does not undo the write;
// it is reported through AttendanceResult.NotifyFailed.
func (r *Reconciler) Record(ctx context.Context, in ports.AttendanceInput) (*ports.AttendanceResult, error) {
	at := in.At.In(r.loc)

	rec, created, err := r.write(ctx, in, at)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", in.Kind, err)
	}

	op := "updated"
	if created {
		op = "created"
	}
	metrics.RecordsWrittenTotal.WithLabelValues(string(in.Kind), op).Inc()

	res := &ports.AttendanceResult{
		Date:    rec.Date,
		Clock:   at.Format(domain.ClockLayout),
		Created: created,
	}
	if in.Kind == domain.KindDeparture {
		res.WorkedHours = rec.WorkedHours
	}

	r.log.Info().
		Str("identity", rec.Identity).
		Str("date", rec.Date).
		Str("kind", string(in.Kind)).
		Str("op", op).
		Msg("attendance recorded")

	if err := r.notifier.Emit(ctx, newNotification(rec, in.Kind, at, in.Evidence)); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		r.log.Warn().Err(err).Str("identity", rec.Identity).Msg("failed to broadcast attendance event")
		res.NotifyFailed = true
	}
	return res, nil
}

func (r *Reconciler) write(ctx context.Context, in ports.AttendanceInput, at time.Time) (domain.Record, bool, error) {
	identity := in.Session.Identity
	date := at.Format(domain.DateLayout)
	clock := at.Format(domain.ClockLayout)

	for attempt := 1; attempt <= maxReconcileAttempts; attempt++ {
		existing, err := r.repo.FindByIdentityAndDate(ctx, identity, date)
		if errors.Is(err, domain.ErrRecordNotFound) {
			rec := domain.NewRecord(in.Session, in.Kind, at, in.Evidence)
			if _, err := r.repo.Append(ctx, rec); err != nil {
				if errors.Is(err, domain.ErrRecordExists) {
					metrics.RecordRetriesTotal.Inc()
					r.log.Debug().Str("identity", identity).Int("attempt", attempt).Msg("lost append race, re-reading")
					continue
				}
				return domain.Record{}, false, fmt.Errorf("append: %w", err)
			}
			return *rec, true, nil
		}
		if err != nil {
			return domain.Record{}, false, fmt.Errorf("find: %w", err)
		}

		fields := existing.Changes(in.Kind, clock, in.Evidence)
		if err := r.repo.UpdateFields(ctx, existing.Handle, fields); err != nil {
			if errors.Is(err, domain.ErrStaleHandle) {
				metrics.RecordRetriesTotal.Inc()
				r.log.Debug().Str("identity", identity).Int("attempt", attempt).Msg("stale record handle, re-reading")
				continue
			}
			return domain.Record{}, false, fmt.Errorf("update: %w", err)
		}
		return existing.With(fields), false, nil
	}
	return domain.Record{}, false, domain.ErrRecordConflict
}

// Stats scans every record of identity. Days is the record count and
// TotalHours the sum of parseable WorkedHours cells.
func (r *Reconciler) Stats(ctx context.Context, identity string) (*ports.ProfileStats, error) {
	recs, err := r.repo.ListByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("profile stats: %w", err)
	}

	stats := &ports.ProfileStats{Days: len(recs)}
	for _, rec := range recs {
		h, _ := domain.ParseHours(rec.WorkedHours)
		stats.TotalHours += h
	}
	stats.TotalHours = domain.Round2(stats.TotalHours)
	return stats, nil
}
