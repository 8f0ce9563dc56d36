package domain

// Session is the registration data and dialogue position of one identity.
// It lives for the lifetime of the process only.
type Session struct {
	Identity string
	Role     string
	FullName string
	Phone    string
	Stage    Stage
}

// NewSession returns an empty session at the start of registration.
func NewSession(identity string) Session {
	return Session{Identity: identity, Stage: StageAwaitingRole}
}

// UnknownSession is what an identity without a stored session looks like:
// resting in idle with nothing registered.
func UnknownSession(identity string) Session {
	return Session{Identity: identity, Stage: StageIdle}
}

// Complete reports whether role, name and phone have all been captured.
func (s Session) Complete() bool {
	return s.Role != "" && s.FullName != "" && s.Phone != ""
}
