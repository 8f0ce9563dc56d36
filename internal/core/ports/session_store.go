package ports

import "github.com/ant-retail/attendance-bot/internal/core/domain"

// SessionStore keeps one dialogue session per identity for the lifetime of
// the process.
type SessionStore interface {
	Get(identity string) (domain.Session, bool)
	// Reset replaces any session of identity with an empty one awaiting a role.
	Reset(identity string) domain.Session
	Save(s domain.Session)
}
