package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
	"github.com/ant-retail/attendance-bot/internal/core/ports"
	"github.com/ant-retail/attendance-bot/internal/infrastructure/memory"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubNotifier struct {
	err  error
	sent []ports.Notification
}

func (n *stubNotifier) Emit(_ context.Context, note ports.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, note)
	return nil
}

// flakyRepo wraps a RecordTable and fails the first N calls of one kind.
type flakyRepo struct {
	*memory.RecordTable
	staleUpdates int
	appendErr    error
	listErr      error
	updates      int
}

func (r *flakyRepo) UpdateFields(ctx context.Context, h domain.RecordHandle, fs domain.FieldSet) error {
	r.updates++
	if r.staleUpdates > 0 {
		r.staleUpdates--
		return domain.ErrStaleHandle
	}
	return r.RecordTable.UpdateFields(ctx, h, fs)
}

func (r *flakyRepo) Append(ctx context.Context, rec *domain.Record) (domain.RecordHandle, error) {
	if r.appendErr != nil {
		return domain.RecordHandle{}, r.appendErr
	}
	return r.RecordTable.Append(ctx, rec)
}

func (r *flakyRepo) ListByIdentity(ctx context.Context, identity string) ([]*domain.Record, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.RecordTable.ListByIdentity(ctx, identity)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func registeredSession(identity string) domain.Session {
	return domain.Session{
		Identity: identity,
		Role:     "Cashier",
		FullName: "Ali Valiyev",
		Phone:    "+998901234567",
		Stage:    domain.StageIdle,
	}
}

func at(clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-05-01 "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func input(kind domain.AttendanceKind, clock string) ports.AttendanceInput {
	return ports.AttendanceInput{
		Session:  registeredSession("42"),
		Kind:     kind,
		At:       at(clock),
		Evidence: domain.Evidence{PhotoRef: "photo-" + clock},
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestReconciler_ArrivalThenDeparture(t *testing.T) {
	table := memory.NewRecordTable()
	notifier := &stubNotifier{}
	r := NewReconciler(table, notifier, time.UTC, zerolog.Nop())
	ctx := context.Background()

	res, err := r.Record(ctx, input(domain.KindArrival, "09:00"))
	if err != nil {
		t.Fatalf("arrival: %v", err)
	}
	if !res.Created || res.Date != "2024-05-01" || res.Clock != "09:00" {
		t.Errorf("unexpected arrival result: %+v", res)
	}

	res, err = r.Record(ctx, input(domain.KindDeparture, "18:30"))
	if err != nil {
		t.Fatalf("departure: %v", err)
	}
	if res.Created {
		t.Error("departure must update the existing record")
	}
	if res.WorkedHours != "9.5" {
		t.Errorf("expected 9.5 worked hours, got %q", res.WorkedHours)
	}

	if table.Len() != 1 {
		t.Fatalf("expected one record for the day, got %d", table.Len())
	}
	rec, _ := table.FindByIdentityAndDate(ctx, "42", "2024-05-01")
	if rec.ArrivalTime != "09:00" || rec.DepartureTime != "18:30" || rec.Status != domain.StatusDeparted {
		t.Errorf("unexpected stored record: %+v", rec)
	}
	if rec.EvidenceRef != "photo-18:30" {
		t.Errorf("evidence should be the latest photo, got %q", rec.EvidenceRef)
	}

	if len(notifier.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(notifier.sent))
	}
	last := notifier.sent[1]
	if !strings.Contains(last.Text, "Left work") || !strings.Contains(last.Text, "9.5") {
		t.Errorf("departure notification missing details: %q", last.Text)
	}
	if last.PhotoRef != "photo-18:30" {
		t.Errorf("notification should carry the photo, got %q", last.PhotoRef)
	}
}

func TestReconciler_RepeatedArrivalKeepsLatestTime(t *testing.T) {
	table := memory.NewRecordTable()
	r := NewReconciler(table, &stubNotifier{}, time.UTC, zerolog.Nop())
	ctx := context.Background()

	_, _ = r.Record(ctx, input(domain.KindArrival, "09:00"))
	if _, err := r.Record(ctx, input(domain.KindArrival, "09:20")); err != nil {
		t.Fatal(err)
	}

	rec, _ := table.FindByIdentityAndDate(ctx, "42", "2024-05-01")
	if table.Len() != 1 || rec.ArrivalTime != "09:20" {
		t.Errorf("expected one record with arrival 09:20, got %d rows, %+v", table.Len(), rec)
	}
}

func TestReconciler_DepartureWithoutArrival(t *testing.T) {
	table := memory.NewRecordTable()
	r := NewReconciler(table, &stubNotifier{}, time.UTC, zerolog.Nop())

	res, err := r.Record(context.Background(), input(domain.KindDeparture, "18:00"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Created || res.WorkedHours != "" {
		t.Errorf("expected a new record without hours, got %+v", res)
	}
	rec, _ := table.FindByIdentityAndDate(context.Background(), "42", "2024-05-01")
	if rec.ArrivalTime != "" || rec.DepartureTime != "18:00" || rec.WorkedHours != "" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestReconciler_BucketsByLocation(t *testing.T) {
	tashkent := time.FixedZone("UZT", 5*60*60)
	table := memory.NewRecordTable()
	r := NewReconciler(table, &stubNotifier{}, tashkent, zerolog.Nop())

	// 20:30 UTC is already the next day in Tashkent.
	res, err := r.Record(context.Background(), ports.AttendanceInput{
		Session: registeredSession("42"),
		Kind:    domain.KindArrival,
		At:      time.Date(2024, 5, 1, 20, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Date != "2024-05-02" || res.Clock != "01:30" {
		t.Errorf("expected local date and time, got %+v", res)
	}
}

func TestReconciler_NotificationFailureIsNonFatal(t *testing.T) {
	table := memory.NewRecordTable()
	r := NewReconciler(table, &stubNotifier{err: errors.New("broadcast down")}, time.UTC, zerolog.Nop())

	res, err := r.Record(context.Background(), input(domain.KindArrival, "09:00"))
	if err != nil {
		t.Fatalf("expected record to succeed, got %v", err)
	}
	if !res.NotifyFailed {
		t.Error("expected NotifyFailed to be set")
	}
	if table.Len() != 1 {
		t.Error("record must be kept when the broadcast fails")
	}
}

func TestReconciler_RepositoryFailure(t *testing.T) {
	notifier := &stubNotifier{}
	repo := &flakyRepo{RecordTable: memory.NewRecordTable(), appendErr: errors.New("sheet unavailable")}
	r := NewReconciler(repo, notifier, time.UTC, zerolog.Nop())

	_, err := r.Record(context.Background(), input(domain.KindArrival, "09:00"))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.sent) != 0 {
		t.Error("nothing must be broadcast when the write fails")
	}
}

func TestReconciler_RetriesStaleHandle(t *testing.T) {
	repo := &flakyRepo{RecordTable: memory.NewRecordTable(), staleUpdates: 1}
	r := NewReconciler(repo, &stubNotifier{}, time.UTC, zerolog.Nop())
	ctx := context.Background()

	_, _ = r.Record(ctx, input(domain.KindArrival, "09:00"))
	res, err := r.Record(ctx, input(domain.KindDeparture, "17:00"))
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if repo.updates != 2 || res.WorkedHours != "8" {
		t.Errorf("expected 2 update attempts and 8 hours, got %d and %q", repo.updates, res.WorkedHours)
	}
}

func TestReconciler_GivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := &flakyRepo{RecordTable: memory.NewRecordTable(), staleUpdates: maxReconcileAttempts}
	r := NewReconciler(repo, &stubNotifier{}, time.UTC, zerolog.Nop())
	ctx := context.Background()

	_, _ = r.Record(ctx, input(domain.KindArrival, "09:00"))
	repo.staleUpdates = maxReconcileAttempts

	_, err := r.Record(ctx, input(domain.KindDeparture, "17:00"))
	if !errors.Is(err, domain.ErrRecordConflict) {
		t.Fatalf("expected ErrRecordConflict, got %v", err)
	}
}

func TestReconciler_Stats(t *testing.T) {
	table := memory.NewRecordTable()
	ctx := context.Background()
	rows := []domain.Record{
		{Date: "2024-05-01", Identity: "42", WorkedHours: "8"},
		{Date: "2024-05-02", Identity: "42", WorkedHours: "7.5"},
		{Date: "2024-05-03", Identity: "42", WorkedHours: "n/a"},
		{Date: "2024-05-01", Identity: "7", WorkedHours: "10"},
	}
	for i := range rows {
		if _, err := table.Append(ctx, &rows[i]); err != nil {
			t.Fatal(err)
		}
	}

	r := NewReconciler(table, &stubNotifier{}, time.UTC, zerolog.Nop())
	stats, err := r.Stats(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Days != 3 || stats.TotalHours != 15.5 {
		t.Errorf("expected 3 days and 15.5 hours, got %+v", stats)
	}

	stats, _ = r.Stats(ctx, "nobody")
	if stats.Days != 0 || stats.TotalHours != 0 {
		t.Errorf("expected empty stats, got %+v", stats)
	}
}

func TestReconciler_StatsFailure(t *testing.T) {
	repo := &flakyRepo{RecordTable: memory.NewRecordTable(), listErr: errors.New("boom")}
	r := NewReconciler(repo, &stubNotifier{}, time.UTC, zerolog.Nop())
	if _, err := r.Stats(context.Background(), "42"); err == nil {
		t.Fatal("expected error")
	}
}
