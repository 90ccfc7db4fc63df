package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/epe202/ulas/core"
	"github.com/epe202/ulas/core/catalog"
)

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
	timeLabelLayout = "15-04-05"
)

// Session is one open sign-in window. It lives in the session directory from
// Start until End; the roster it points at outlives it.
type Session struct {
	School     string    `json:"school"`
	Department string    `json:"department"`
	Level      string    `json:"level"`
	CourseCode string    `json:"course_code"`
	StartedAt  time.Time `json:"started_at"` // code schedule origin, sub-second precision
	Date       string    `json:"date"`
	StartTime  string    `json:"start_time"`
	RosterKey  string    `json:"roster_key"`
}

func (s Session) Unit() catalog.Unit {
	return catalog.Unit{School: s.School, Department: s.Department, Level: s.Level}
}

// Entry is one accepted sign-in. All name fields and the matric number are
// stored trimmed and upper-cased.
type Entry struct {
	Surname    string `json:"surname"`
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name"`
	Matric     string `json:"matric"`
	Timestamp  string `json:"timestamp"`
}

// RosterRow is an Entry with its ordinal. The S/N is the positional index + 1
// recomputed on every read, never stored; deleting an entry renumbers the rest.
type RosterRow struct {
	SN int `json:"sn"`
	Entry
}

func renderRoster(entries []Entry) []RosterRow {
	rows := make([]RosterRow, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, RosterRow{SN: i + 1, Entry: e})
	}
	return rows
}

// EntryInput contains information needed to record a new Entry.
type EntryInput struct {
	Surname    string `json:"surname" validate:"required"`
	FirstName  string `json:"first_name" validate:"required"`
	MiddleName string `json:"middle_name"`
	Matric     string `json:"matric" validate:"required,matric"`
}

// Validate normalizes all fields (trim + uppercase) then checks them.
func (in *EntryInput) Validate(validate *validator.Validate) error {
	in.Surname = core.CleanString(in.Surname, true /* upper */)
	in.FirstName = core.CleanString(in.FirstName, true /* upper */)
	in.MiddleName = core.CleanString(in.MiddleName, true /* upper */)
	in.Matric = core.CleanString(in.Matric, true /* upper */)

	return validate.Struct(in)
}

func (in EntryInput) entry(acceptedAt time.Time) Entry {
	return Entry{
		Surname:    in.Surname,
		FirstName:  in.FirstName,
		MiddleName: in.MiddleName,
		Matric:     in.Matric,
		Timestamp:  acceptedAt.Format(timestampLayout),
	}
}
