package domain

// Stage is the position of a user in the dialogue.
type Stage string

const (
	StageAwaitingRole           Stage = "awaiting_role"
	StageAwaitingName           Stage = "awaiting_name"
	StageAwaitingPhone          Stage = "awaiting_phone"
	StageIdle                   Stage = "idle"
	StageAwaitingArrivalPhoto   Stage = "awaiting_arrival_photo"
	StageAwaitingDeparturePhoto Stage = "awaiting_departure_photo"
)

// AwaitingPhoto reports whether the stage expects a confirmation photo and,
// if so, for which kind of event.
func (s Stage) AwaitingPhoto() (AttendanceKind, bool) {
	switch s {
	case StageAwaitingArrivalPhoto:
		return KindArrival, true
	case StageAwaitingDeparturePhoto:
		return KindDeparture, true
	}
	return "", false
}

func photoStage(kind AttendanceKind) Stage {
	if kind == KindDeparture {
		return StageAwaitingDeparturePhoto
	}
	return StageAwaitingArrivalPhoto
}
