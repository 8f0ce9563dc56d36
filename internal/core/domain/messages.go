package domain

import "strings"

// Roles offered on the role keyboard. Any non-empty text is accepted.
var Roles = []string{"🧾 Cashier", "📦 Warehouse", "🧍 Salesperson"}

// Menu button labels shown to users.
const (
	LabelArrived  = "📍 Arrived"
	LabelDeparted = "🏁 Departed"
	LabelProfile  = "👤 My profile"
	LabelContact  = "📞 Share phone number"
)

// menuLabels maps button texts that arrive as plain text to menu actions.
// The Uzbek labels are the ones earlier bot versions rendered.
var menuLabels = map[string]string{
	LabelArrived:      MenuArrived,
	LabelDeparted:     MenuDeparted,
	LabelProfile:      MenuProfile,
	"📍 Ishga keldim":  MenuArrived,
	"🏁 Ishdan ketdim": MenuDeparted,
	"👤 Profilim":      MenuProfile,
	"📍 Kelish":        MenuArrived,
	"🏁 Ketish":        MenuDeparted,
}

// Buttons returns the button labels of a keyboard, one per row.
func (k Keyboard) Buttons() []string {
	switch k {
	case KeyboardRoles:
		return Roles
	case KeyboardContact:
		return []string{LabelContact}
	case KeyboardMenu:
		return []string{LabelArrived, LabelDeparted, LabelProfile}
	}
	return nil
}

// MenuFromLabel resolves a button label or bare menu name to a menu action.
func MenuFromLabel(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if name, ok := menuLabels[text]; ok {
		return name, true
	}
	switch name := strings.ToLower(text); name {
	case MenuArrived, MenuDeparted, MenuProfile:
		return name, true
	}
	return "", false
}

// Dialogue prompts.
const (
	MsgWelcome          = "Welcome to the staff attendance bot!\n\nPlease choose your role:"
	MsgAskRole          = "Please choose your role from the buttons below."
	MsgAskName          = "Please enter your full name:"
	MsgNameRequired     = "Your full name cannot be empty. Please enter your full name:"
	MsgAskPhone         = "Please share your phone number using the button below."
	MsgRegistered       = "✅ Your details have been saved. Choose an action:"
	MsgChooseMenu       = "Please choose one of the buttons below."
	MsgRegisterFirst    = "❗ Please register first with /start."
	MsgSendArrivalPhoto = "📸 Please send a photo confirming your arrival:"
	MsgSendDeparture    = "📸 Please send a photo confirming your departure:"
	MsgPhotoExpected    = "📸 A photo is expected. Send a photo or /cancel."
	MsgPhotoUnavailable = "❗ The photo could not be received. Please send it again."
	MsgPressButtonFirst = "❗ Press \"Arrived\" or \"Departed\" first, then send a photo."
	MsgCancelled        = "❌ Cancelled."
	MsgRecordFailed     = "❗ Something went wrong while saving. Please try again from the menu."
)
