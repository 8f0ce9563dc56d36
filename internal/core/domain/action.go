package domain

import (
	"fmt"
	"strconv"
	"time"
)

// ActionKind tags an inbound user action.
type ActionKind string

const (
	ActionRegistrationStart ActionKind = "registration_start"
	ActionText              ActionKind = "text"
	ActionContactShared     ActionKind = "contact_shared"
	ActionPhotoShared       ActionKind = "photo_shared"
	ActionMenu              ActionKind = "menu"
	ActionCancel            ActionKind = "cancel"
)

// Menu action names offered in idle.
const (
	MenuArrived  = "arrived"
	MenuDeparted = "departed"
	MenuProfile  = "profile"
)

// Coordinates is a shared geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 6, 64)
}

// Action is one user action delivered by the transport, tagged by the
// sender identity. Value carries the text, phone, photo reference or menu
// name depending on Kind.
type Action struct {
	// ID is the delivery id assigned by the transport. Redeliveries of the
	// same action carry the same ID.
	ID       string
	Identity string
	Kind     ActionKind
	Value    string
	Location *Coordinates
	SentAt   time.Time
}

// Validate checks the fields every action must carry.
func (a Action) Validate() error {
	if a.Identity == "" {
		return fmt.Errorf("%w: identity is required", ErrInvalidAction)
	}
	switch a.Kind {
	case ActionRegistrationStart, ActionText, ActionContactShared,
		ActionPhotoShared, ActionMenu, ActionCancel:
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAction, a.Kind)
	}
}
