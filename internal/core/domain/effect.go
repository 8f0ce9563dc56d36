package domain

// Keyboard names the reply buttons the transport should render.
type Keyboard string

const (
	KeyboardNone    Keyboard = "none"
	KeyboardRoles   Keyboard = "roles"
	KeyboardContact Keyboard = "contact"
	KeyboardMenu    Keyboard = "menu"
)

// Reply is one outbound message to the user.
type Reply struct {
	Text     string   `json:"text"`
	Keyboard Keyboard `json:"keyboard"`
}

// EffectKind tags a side effect requested by a transition.
type EffectKind string

const (
	EffectReply            EffectKind = "reply"
	EffectRecordAttendance EffectKind = "record_attendance"
	EffectShowProfile      EffectKind = "show_profile"
)

// Effect is a side effect the executor must perform after a transition.
type Effect struct {
	Kind  EffectKind
	Reply Reply

	// Set for EffectRecordAttendance.
	Attendance AttendanceKind
	Evidence   Evidence

	// Err is the dialogue error that selected this reply, if any.
	Err error
}

func replyEffect(text string, kb Keyboard) Effect {
	return Effect{Kind: EffectReply, Reply: Reply{Text: text, Keyboard: kb}}
}

func errorEffect(err error, text string, kb Keyboard) Effect {
	e := replyEffect(text, kb)
	e.Err = err
	return e
}
