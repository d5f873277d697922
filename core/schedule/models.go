package schedule

import (
	"strings"
	"time"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/school"
)

// Weekday is a timetable day, stored in its canonical enum form.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

// Weekdays lists all days in display order, Monday first.
var Weekdays = [7]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

func (d Weekday) Valid() bool {
	for _, day := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Entry is one scheduled (class, day, time-slot, subject, teacher, room)
// assignment. Times are school-local wall-clock "HH:mm" strings; no timezone.
type Entry struct {
	ID        string  `json:"id"`
	ClassID   string  `json:"class_id"`
	Day       Weekday `json:"day"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	SubjectID string  `json:"subject_id"`
	TeacherID string  `json:"teacher_id"`
	Room      string  `json:"room,omitempty"`

	// display fields, joined in from the directory on reads
	ClassName   string `json:"class_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewEntry contains information needed to schedule a new Entry.
type NewEntry struct {
	ClassID   string  `json:"class_id" validate:"required"`
	Day       Weekday `json:"day" validate:"required,weekday"`
	StartTime string  `json:"start_time" validate:"required,hhmm"`
	EndTime   string  `json:"end_time" validate:"required,hhmm"`
	SubjectID string  `json:"subject_id" validate:"required"`
	TeacherID string  `json:"teacher_id" validate:"required"`
	Room      string  `json:"room"`
}

func (ne *NewEntry) Validate() error {
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.Day = Weekday(strings.ToUpper(core.CleanString(string(ne.Day))))
	ne.StartTime = core.CleanString(ne.StartTime)
	ne.EndTime = core.CleanString(ne.EndTime)
	ne.SubjectID = core.CleanString(ne.SubjectID)
	ne.TeacherID = core.CleanString(ne.TeacherID)
	ne.Room = core.CleanString(ne.Room)
	return core.Validate.Struct(ne)
}

// NewWeek contains a whole week's worth of entries for one class,
// to be persisted all-or-nothing.
type NewWeek struct {
	ClassID string     `json:"class_id" validate:"required"`
	Entries []NewEntry `json:"entries" validate:"required,min=1"`
}

func (nw *NewWeek) Validate() error {
	nw.ClassID = core.CleanString(nw.ClassID)
	return core.Validate.Struct(nw)
}

// UpdateEntry defines what information may be provided to modify an existing
// Entry. Zero-valued fields are retained from the original; Room may be
// cleared by sending an explicit empty string.
type UpdateEntry struct {
	Day       Weekday `json:"day" validate:"omitempty,weekday"`
	StartTime string  `json:"start_time" validate:"omitempty,hhmm"`
	EndTime   string  `json:"end_time" validate:"omitempty,hhmm"`
	SubjectID string  `json:"subject_id"`
	TeacherID string  `json:"teacher_id"`
	Room      *string `json:"room"`
}

// Validate cleans the patch and fills unprovided fields from orig, so that the
// service always re-validates the full effective entry.
func (ue *UpdateEntry) Validate(orig Entry) error {
	ue.Day = Weekday(strings.ToUpper(core.CleanString(string(ue.Day))))
	if ue.Day == "" {
		ue.Day = orig.Day
	}

	ue.StartTime = core.CleanString(ue.StartTime)
	if ue.StartTime == "" {
		ue.StartTime = orig.StartTime
	}

	ue.EndTime = core.CleanString(ue.EndTime)
	if ue.EndTime == "" {
		ue.EndTime = orig.EndTime
	}

	ue.SubjectID = core.CleanString(ue.SubjectID)
	if ue.SubjectID == "" {
		ue.SubjectID = orig.SubjectID
	}

	ue.TeacherID = core.CleanString(ue.TeacherID)
	if ue.TeacherID == "" {
		ue.TeacherID = orig.TeacherID
	}

	return core.Validate.Struct(ue)
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	ClassID   string  `query:"class_id"`
	TeacherID string  `query:"teacher_id"`
	Day       Weekday `query:"day"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ClassID == "" && qf.TeacherID == "" && qf.Day == ""
}

func (qf *QueryFilter) Clean() {
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.Day = Weekday(strings.ToUpper(core.CleanString(string(qf.Day))))
}

// WeekGrid groups entries by day, always carrying all seven keys in
// Monday→Sunday order regardless of which days have entries.
type WeekGrid struct {
	Monday    []Entry `json:"MONDAY"`
	Tuesday   []Entry `json:"TUESDAY"`
	Wednesday []Entry `json:"WEDNESDAY"`
	Thursday  []Entry `json:"THURSDAY"`
	Friday    []Entry `json:"FRIDAY"`
	Saturday  []Entry `json:"SATURDAY"`
	Sunday    []Entry `json:"SUNDAY"`
}

func NewWeekGrid() WeekGrid {
	return WeekGrid{
		Monday:    []Entry{},
		Tuesday:   []Entry{},
		Wednesday: []Entry{},
		Thursday:  []Entry{},
		Friday:    []Entry{},
		Saturday:  []Entry{},
		Sunday:    []Entry{},
	}
}

func (g *WeekGrid) add(entry Entry) {
	switch entry.Day {
	case Monday:
		g.Monday = append(g.Monday, entry)
	case Tuesday:
		g.Tuesday = append(g.Tuesday, entry)
	case Wednesday:
		g.Wednesday = append(g.Wednesday, entry)
	case Thursday:
		g.Thursday = append(g.Thursday, entry)
	case Friday:
		g.Friday = append(g.Friday, entry)
	case Saturday:
		g.Saturday = append(g.Saturday, entry)
	case Sunday:
		g.Sunday = append(g.Sunday, entry)
	}
}

// WeekSchedule is the weekly bulk-creation result: a confirmation message,
// the class the week was scheduled for and the persisted entries.
type WeekSchedule struct {
	Message string       `json:"message"`
	Class   school.Class `json:"class"`
	Entries []Entry      `json:"entries"`
}

// ClassTimetable is the byClass read view: the class, its week grid and the
// number of entries in it.
type ClassTimetable struct {
	Class        school.Class `json:"class"`
	Timetable    WeekGrid     `json:"timetable"`
	TotalEntries int          `json:"total_entries"`
}
