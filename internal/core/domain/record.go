package domain

import "time"

// AttendanceKind is the event being confirmed.
type AttendanceKind string

const (
	KindArrival   AttendanceKind = "arrival"
	KindDeparture AttendanceKind = "departure"
)

// Status returns the record status label written for this kind.
func (k AttendanceKind) Status() string {
	if k == KindDeparture {
		return StatusDeparted
	}
	return StatusArrived
}

const (
	StatusArrived  = "arrived"
	StatusDeparted = "departed"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Column names the fields of the attendance table. Column order in a
// backend is a convention; the meaning of each column is fixed.
type Column string

const (
	ColumnDate          Column = "Date"
	ColumnTelegramID    Column = "TelegramID"
	ColumnFullName      Column = "FullName"
	ColumnRole          Column = "Role"
	ColumnPhone         Column = "Phone"
	ColumnArrivalTime   Column = "ArrivalTime"
	ColumnDepartureTime Column = "DepartureTime"
	ColumnWorkedHours   Column = "WorkedHours"
	ColumnStatus        Column = "Status"
	ColumnEvidenceRef   Column = "EvidenceRef"
)

// Columns is the table header in storage order.
var Columns = []Column{
	ColumnDate, ColumnTelegramID, ColumnFullName, ColumnRole, ColumnPhone,
	ColumnArrivalTime, ColumnDepartureTime, ColumnWorkedHours, ColumnStatus,
	ColumnEvidenceRef,
}

// FieldSet is a partial row update. All values are cell text.
type FieldSet map[Column]string

// RecordHandle points at a stored row. Key fields let the backend verify,
// at write time, that the row still belongs to the same (identity, date).
type RecordHandle struct {
	Ref      string
	Identity string
	Date     string
}

// Evidence corroborates an arrival or departure.
type Evidence struct {
	PhotoRef string
	Location *Coordinates
}

// Ref is the value stored in the EvidenceRef column.
func (e Evidence) Ref() string {
	if e.PhotoRef != "" {
		return e.PhotoRef
	}
	if e.Location != nil {
		return e.Location.String()
	}
	return ""
}

// Record is one daily attendance row for one identity. Times are HH:MM
// text and WorkedHours is decimal text, matching the tabular backend.
type Record struct {
	Handle RecordHandle

	Date          string
	Identity      string
	FullName      string
	Role          string
	Phone         string
	ArrivalTime   string
	DepartureTime string
	WorkedHours   string
	Status        string
	EvidenceRef   string
}

// NewRecord builds the first record of the day for a session.
func NewRecord(s Session, kind AttendanceKind, at time.Time, ev Evidence) *Record {
	r := &Record{
		Date:     at.Format(DateLayout),
		Identity: s.Identity,
		FullName: s.FullName,
		Role:     s.Role,
		Phone:    s.Phone,
	}
	r.apply(r.Changes(kind, at.Format(ClockLayout), ev))
	return r
}

// Changes computes the fields an event of the given kind writes on this
// record. Departure also yields WorkedHours when an arrival is present.
func (r *Record) Changes(kind AttendanceKind, clock string, ev Evidence) FieldSet {
	fs := FieldSet{
		ColumnStatus:      kind.Status(),
		ColumnEvidenceRef: ev.Ref(),
	}
	switch kind {
	case KindArrival:
		fs[ColumnArrivalTime] = clock
	case KindDeparture:
		fs[ColumnDepartureTime] = clock
		if r.ArrivalTime != "" {
			if h, err := WorkedHours(r.ArrivalTime, clock); err == nil {
				fs[ColumnWorkedHours] = FormatHours(h)
			}
		}
	}
	return fs
}

// Row returns the record as cells in Columns order.
func (r *Record) Row() []string {
	row := make([]string, len(Columns))
	for i, c := range Columns {
		row[i] = r.Get(c)
	}
	return row
}

// RecordFromRow is the inverse of Row. Missing trailing cells read as empty.
func RecordFromRow(row []string) *Record {
	r := &Record{}
	for i, c := range Columns {
		if i < len(row) {
			r.set(c, row[i])
		}
	}
	return r
}

// Get returns the cell for a column.
func (r *Record) Get(c Column) string {
	switch c {
	case ColumnDate:
		return r.Date
	case ColumnTelegramID:
		return r.Identity
	case ColumnFullName:
		return r.FullName
	case ColumnRole:
		return r.Role
	case ColumnPhone:
		return r.Phone
	case ColumnArrivalTime:
		return r.ArrivalTime
	case ColumnDepartureTime:
		return r.DepartureTime
	case ColumnWorkedHours:
		return r.WorkedHours
	case ColumnStatus:
		return r.Status
	case ColumnEvidenceRef:
		return r.EvidenceRef
	}
	return ""
}

func (r *Record) set(c Column, v string) {
	switch c {
	case ColumnDate:
		r.Date = v
	case ColumnTelegramID:
		r.Identity = v
	case ColumnFullName:
		r.FullName = v
	case ColumnRole:
		r.Role = v
	case ColumnPhone:
		r.Phone = v
	case ColumnArrivalTime:
		r.ArrivalTime = v
	case ColumnDepartureTime:
		r.DepartureTime = v
	case ColumnWorkedHours:
		r.WorkedHours = v
	case ColumnStatus:
		r.Status = v
	case ColumnEvidenceRef:
		r.EvidenceRef = v
	}
}

func (r *Record) apply(fs FieldSet) {
	for c, v := range fs {
		r.set(c, v)
	}
}

// With returns a copy of the record with the field set written over it.
func (r *Record) With(fs FieldSet) Record {
	c := *r
	c.apply(fs)
	return c
}
