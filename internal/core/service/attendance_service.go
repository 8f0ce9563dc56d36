package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
	"github.com/ant-retail/attendance-bot/internal/core/ports"
	"github.com/ant-retail/attendance-bot/internal/pkg/metrics"
)

const defaultTurnTimeout = 15 * time.Second

// DedupChecker abstracts the redelivery guard (Redis).
type DedupChecker interface {
	IsDuplicate(ctx context.Context, identity, actionID string) (bool, error)
	Mark(ctx context.Context, identity, actionID string) error
}

// AttendanceDeps groups the collaborators of the attendance service.
type AttendanceDeps struct {
	Machine  domain.Machine
	Sessions ports.SessionStore
	Records  ports.RecordService
	Evidence ports.EvidenceResolver
	Replier  ports.Replier
	Dedup    DedupChecker // optional

	// Now stamps actions that arrive without a send time. Defaults to time.Now.
	Now func() time.Time
	// TurnTimeout bounds all storage, broadcast and reply calls of one turn.
	TurnTimeout time.Duration
}

type attendanceService struct {
	deps AttendanceDeps
	log  zerolog.Logger
}

// NewAttendanceService returns the executor that runs dialogue transitions
// and carries out their effects.
func NewAttendanceService(deps AttendanceDeps, log zerolog.Logger) ports.AttendanceService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.TurnTimeout <= 0 {
		deps.TurnTimeout = defaultTurnTimeout
	}
	if deps.Evidence == nil {
		deps.Evidence = RefResolver{}
	}
	return &attendanceService{deps: deps, log: log}
}

// Handle runs one dialogue turn: dedup, transition, effects, session save
// and replies. Dialogue problems are answered in-band and are not errors;
// the returned error is for the operator log.
func (s *attendanceService) Handle(ctx context.Context, a domain.Action) error {
	if err := a.Validate(); err != nil {
		metrics.ActionErrorsTotal.WithLabelValues("invalid_action").Inc()
		return fmt.Errorf("handle action: %w", err)
	}

	start := time.Now()
	log := s.log.With().
		Str("turn_id", uuid.NewString()).
		Str("identity", a.Identity).
		Str("action", string(a.Kind)).
		Logger()

	// 1. Redelivery check. A failing check must not block the user.
	if a.ID != "" && s.deps.Dedup != nil {
		dup, err := s.deps.Dedup.IsDuplicate(ctx, a.Identity, a.ID)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("dedup check failed, processing anyway")
		case dup:
			metrics.ActionsDedupTotal.WithLabelValues("hit").Inc()
			log.Debug().Str("action_id", a.ID).Msg("duplicate action skipped")
			return nil
		default:
			metrics.ActionsDedupTotal.WithLabelValues("miss").Inc()
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.deps.TurnTimeout)
	defer cancel()

	// 2. Transition.
	current := s.session(a)
	next, effects := s.deps.Machine.Transition(current, a)

	// 3. Effects.
	replies := make([]domain.Reply, 0, len(effects))
	for _, eff := range effects {
		switch eff.Kind {
		case domain.EffectReply:
			if eff.Err != nil {
				log.Debug().Err(eff.Err).Str("stage", string(current.Stage)).Msg("dialogue input rejected")
			}
			replies = append(replies, eff.Reply)
		case domain.EffectRecordAttendance:
			reply, stage := s.record(ctx, log, current.Stage, next, a, eff)
			next.Stage = stage
			replies = append(replies, reply)
		case domain.EffectShowProfile:
			replies = append(replies, s.profile(ctx, log, next))
		}
	}

	// 4. Commit the dialogue position, then mark the delivery as handled.
	s.deps.Sessions.Save(next)
	if a.ID != "" && s.deps.Dedup != nil {
		if err := s.deps.Dedup.Mark(ctx, a.Identity, a.ID); err != nil {
			log.Warn().Err(err).Msg("failed to set dedup key")
		}
	}

	// 5. Replies.
	var errs []error
	for _, r := range replies {
		if err := s.deps.Replier.Reply(ctx, a.Identity, r); err != nil {
			metrics.ActionErrorsTotal.WithLabelValues("reply_failed").Inc()
			errs = append(errs, err)
		}
	}

	metrics.ActionsProcessedTotal.WithLabelValues(string(a.Kind), string(next.Stage)).Inc()
	metrics.TurnDuration.WithLabelValues(string(a.Kind)).Observe(time.Since(start).Seconds())

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("handle action: reply: %w", err)
	}
	log.Debug().Str("from", string(current.Stage)).Str("to", string(next.Stage)).Msg("turn completed")
	return nil
}

func (s *attendanceService) session(a domain.Action) domain.Session {
	if a.Kind == domain.ActionRegistrationStart {
		return s.deps.Sessions.Reset(a.Identity)
	}
	if sess, ok := s.deps.Sessions.Get(a.Identity); ok {
		return sess
	}
	return domain.UnknownSession(a.Identity)
}

// record carries out EffectRecordAttendance and returns the reply together
// with the stage the session must end in.
func (s *attendanceService) record(
	ctx context.Context,
	log zerolog.Logger,
	photoStage domain.Stage,
	sess domain.Session,
	a domain.Action,
	eff domain.Effect,
) (domain.Reply, domain.Stage) {
	ev, err := s.deps.Evidence.Resolve(ctx, eff.Evidence)
	if err != nil {
		metrics.ActionErrorsTotal.WithLabelValues("evidence_unavailable").Inc()
		log.Warn().Err(err).Msg("evidence could not be resolved")
		return domain.Reply{Text: domain.MsgPhotoUnavailable, Keyboard: domain.KeyboardNone}, photoStage
	}

	at := a.SentAt
	if at.IsZero() {
		at = s.deps.Now()
	}

	res, err := s.deps.Records.Record(ctx, ports.AttendanceInput{
		Session:  sess,
		Kind:     eff.Attendance,
		At:       at,
		Evidence: ev,
	})
	if err != nil {
		metrics.ActionErrorsTotal.WithLabelValues("record_failed").Inc()
		log.Error().Err(err).Msg("attendance record failed")
		return domain.Reply{Text: domain.MsgRecordFailed, Keyboard: domain.KeyboardMenu}, domain.StageIdle
	}
	return domain.Reply{Text: confirmationText(eff.Attendance, res), Keyboard: domain.KeyboardMenu}, domain.StageIdle
}

func (s *attendanceService) profile(ctx context.Context, log zerolog.Logger, sess domain.Session) domain.Reply {
	stats, err := s.deps.Records.Stats(ctx, sess.Identity)
	if err != nil {
		metrics.ActionErrorsTotal.WithLabelValues("profile_failed").Inc()
		log.Error().Err(err).Msg("profile stats failed")
		return domain.Reply{Text: msgProfileFailed, Keyboard: domain.KeyboardMenu}
	}
	return domain.Reply{Text: profileText(sess, stats), Keyboard: domain.KeyboardMenu}
}

const msgProfileFailed = "❗ Your profile could not be loaded. Please try again."

func confirmationText(kind domain.AttendanceKind, res *ports.AttendanceResult) string {
	var b strings.Builder
	if kind == domain.KindDeparture {
		b.WriteString("✅ Photo received! Your departure has been recorded.")
	} else {
		b.WriteString("✅ Photo received! Your arrival has been recorded.")
	}
	fmt.Fprintf(&b, "\n⏰ Time: %s %s", res.Date, res.Clock)
	if res.WorkedHours != "" {
		fmt.Fprintf(&b, "\n🕒 Worked today: %s h", res.WorkedHours)
	}
	if res.NotifyFailed {
		b.WriteString("\n⚠️ The group could not be notified.")
	}
	return b.String()
}

func profileText(sess domain.Session, stats *ports.ProfileStats) string {
	var b strings.Builder
	b.WriteString("👤 Your profile:\n\n")
	fmt.Fprintf(&b, "📝 Name: %s\n", sess.FullName)
	fmt.Fprintf(&b, "🏢 Role: %s\n", sess.Role)
	fmt.Fprintf(&b, "📞 Phone: %s\n", sess.Phone)
	fmt.Fprintf(&b, "🆔 Telegram ID: %s\n", sess.Identity)
	fmt.Fprintf(&b, "📆 Days worked: %d\n", stats.Days)
	fmt.Fprintf(&b, "🕒 Total hours: %s", domain.FormatHours(stats.TotalHours))
	return b.String()
}
