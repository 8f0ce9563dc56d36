package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ant-retail/attendance-bot/internal/core/domain"
	"github.com/ant-retail/attendance-bot/internal/core/ports"
	"github.com/ant-retail/attendance-bot/internal/pkg/metrics"
)

func actionLabel(kind domain.AttendanceKind) string {
	if kind == domain.KindDeparture {
		return "Left work"
	}
	return "Arrived at work"
}

// newNotification formats the broadcast summary of one written event.
func newNotification(rec domain.Record, kind domain.AttendanceKind, at time.Time, ev domain.Evidence) ports.Notification {
	var b strings.Builder
	b.WriteString("📝 Staff report\n\n")
	fmt.Fprintf(&b, "👤 Name: %s\n", rec.FullName)
	fmt.Fprintf(&b, "🏢 Role: %s\n", rec.Role)
	fmt.Fprintf(&b, "📞 Phone: %s\n", rec.Phone)
	fmt.Fprintf(&b, "⏰ Time: %s\n", at.Format(domain.DateLayout+" "+domain.ClockLayout))
	fmt.Fprintf(&b, "🔄 Action: %s", actionLabel(kind))
	if kind == domain.KindDeparture && rec.WorkedHours != "" {
		fmt.Fprintf(&b, "\n🕒 Worked: %s h", rec.WorkedHours)
	}

	return ports.Notification{
		Text:     b.String(),
		PhotoRef: ev.PhotoRef,
		Location: ev.Location,
	}
}

// NopNotifier is used when no broadcast destination is configured. Records
// are still written; the broadcast is skipped.
type NopNotifier struct {
	log zerolog.Logger
}

func NewNopNotifier(log zerolog.Logger) *NopNotifier {
	return &NopNotifier{log: log}
}

func (n *NopNotifier) Emit(_ context.Context, _ ports.Notification) error {
	metrics.NotificationsTotal.WithLabelValues("skipped").Inc()
	n.log.Debug().Msg("no broadcast destination configured, notification skipped")
	return nil
}
