package domain

import (
	"fmt"
	"strings"
)

// Machine holds the dialogue policy. Transition is pure: it performs no I/O
// and reads no clock, so every path is testable without a transport.
type Machine struct {
	// AllowTextPhone accepts a typed phone number in place of a shared
	// contact. When PhoneCheck is set the text must also pass it.
	AllowTextPhone bool
	PhoneCheck     func(string) bool
}

// Transition advances a session by one action and returns the effects the
// caller must carry out. The returned session is the one to store.
func (m Machine) Transition(s Session, a Action) (Session, []Effect) {
	if s.Identity == "" {
		s.Identity = a.Identity
	}
	if a.Kind == ActionRegistrationStart {
		return NewSession(s.Identity), []Effect{replyEffect(MsgWelcome, KeyboardRoles)}
	}

	switch s.Stage {
	case StageAwaitingRole:
		return m.onRole(s, a)
	case StageAwaitingName:
		return m.onName(s, a)
	case StageAwaitingPhone:
		return m.onPhone(s, a)
	case StageAwaitingArrivalPhoto, StageAwaitingDeparturePhoto:
		return m.onPhoto(s, a)
	default:
		s.Stage = StageIdle
		return m.onIdle(s, a)
	}
}

func mismatch(s Session, text string, kb Keyboard) (Session, []Effect) {
	return s, []Effect{errorEffect(ErrInputMismatch, text, kb)}
}

func (m Machine) onRole(s Session, a Action) (Session, []Effect) {
	role := strings.TrimSpace(a.Value)
	if a.Kind != ActionText || role == "" {
		return mismatch(s, MsgAskRole, KeyboardRoles)
	}
	s.Role = role
	s.Stage = StageAwaitingName
	return s, []Effect{replyEffect(MsgAskName, KeyboardNone)}
}

func (m Machine) onName(s Session, a Action) (Session, []Effect) {
	if a.Kind != ActionText {
		return mismatch(s, MsgAskName, KeyboardNone)
	}
	name := strings.Join(strings.Fields(a.Value), " ")
	if name == "" {
		return mismatch(s, MsgNameRequired, KeyboardNone)
	}
	s.FullName = name
	s.Stage = StageAwaitingPhone
	return s, []Effect{replyEffect(MsgAskPhone, KeyboardContact)}
}

func (m Machine) onPhone(s Session, a Action) (Session, []Effect) {
	phone := strings.TrimSpace(a.Value)
	switch a.Kind {
	case ActionContactShared:
	case ActionText:
		if !m.AllowTextPhone || (m.PhoneCheck != nil && !m.PhoneCheck(phone)) {
			return mismatch(s, MsgAskPhone, KeyboardContact)
		}
	default:
		return mismatch(s, MsgAskPhone, KeyboardContact)
	}
	if phone == "" {
		return mismatch(s, MsgAskPhone, KeyboardContact)
	}
	s.Phone = phone
	s.Stage = StageIdle
	return s, []Effect{replyEffect(MsgRegistered, KeyboardMenu)}
}

func (m Machine) onIdle(s Session, a Action) (Session, []Effect) {
	switch a.Kind {
	case ActionCancel:
		return s, []Effect{replyEffect(MsgCancelled, KeyboardMenu)}
	case ActionMenu:
		return m.onMenu(s, a.Value)
	case ActionText:
		if name, ok := MenuFromLabel(a.Value); ok {
			return m.onMenu(s, name)
		}
	}
	if !s.Complete() {
		return incomplete(s)
	}
	if a.Kind == ActionPhotoShared {
		return mismatch(s, MsgPressButtonFirst, KeyboardMenu)
	}
	return mismatch(s, MsgChooseMenu, KeyboardMenu)
}

func incomplete(s Session) (Session, []Effect) {
	return s, []Effect{errorEffect(ErrIncompleteSession, MsgRegisterFirst, KeyboardNone)}
}

func (m Machine) onMenu(s Session, name string) (Session, []Effect) {
	if !s.Complete() {
		return incomplete(s)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MenuArrived:
		s.Stage = photoStage(KindArrival)
		return s, []Effect{replyEffect(MsgSendArrivalPhoto, KeyboardNone)}
	case MenuDeparted:
		s.Stage = photoStage(KindDeparture)
		return s, []Effect{replyEffect(MsgSendDeparture, KeyboardNone)}
	case MenuProfile:
		return s, []Effect{{Kind: EffectShowProfile}}
	}
	return s, []Effect{errorEffect(
		fmt.Errorf("%w: unknown menu action %q", ErrInputMismatch, name),
		MsgChooseMenu, KeyboardMenu,
	)}
}

func (m Machine) onPhoto(s Session, a Action) (Session, []Effect) {
	kind, _ := s.Stage.AwaitingPhoto()
	switch a.Kind {
	case ActionCancel:
		s.Stage = StageIdle
		return s, []Effect{replyEffect(MsgCancelled, KeyboardMenu)}
	case ActionPhotoShared:
		ref := strings.TrimSpace(a.Value)
		if ref == "" && a.Location == nil {
			return s, []Effect{errorEffect(ErrEvidenceUnavailable, MsgPhotoUnavailable, KeyboardNone)}
		}
		s.Stage = StageIdle
		return s, []Effect{{
			Kind:       EffectRecordAttendance,
			Attendance: kind,
			Evidence:   Evidence{PhotoRef: ref, Location: a.Location},
		}}
	}
	return mismatch(s, MsgPhotoExpected, KeyboardNone)
}
