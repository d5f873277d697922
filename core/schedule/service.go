package schedule

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/school"
)

var (
	// errors
	ErrNotFound           = errors.New("timetable entry not found")
	ErrInvalidTimeRange   = errors.New("start time must be before end time")
	ErrAssignmentMismatch = errors.New("teacher is not assigned to this subject")
	ErrInconsistentBatch  = errors.New("entry does not reference the declared class")
)

// ConflictError is returned when a slot would double-book a teacher. It
// carries the conflicting entry so callers can tell the admin what is in the
// way.
type ConflictError struct {
	Conflicting Entry
}

func (e *ConflictError) Error() string {
	c := e.Conflicting
	return fmt.Sprintf(
		"teacher is already booked for %s (%s) on %s %s-%s",
		c.SubjectName, c.ClassName, c.Day, c.StartTime, c.EndTime,
	)
}

// EntryError tags a validation failure with the batch entry that caused it.
type EntryError struct {
	Index     int
	Day       Weekday
	StartTime string
	EndTime   string
	Err       error
}

// BatchError aggregates every per-entry failure of a weekly bulk creation;
// the batch is rejected as a whole and nothing is persisted.
type BatchError struct {
	Errors []EntryError
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d timetable entries failed validation", len(e.Errors))
}

// isSchedulingErr tells scheduling taxonomy errors (bad input, genuine
// conflicts) apart from infrastructure failures.
func isSchedulingErr(err error) bool {
	switch errors.Cause(err).(type) {
	case *ConflictError, *core.ValidationError:
		return true
	}
	switch errors.Cause(err) {
	case ErrNotFound, ErrInvalidTimeRange, ErrAssignmentMismatch, ErrInconsistentBatch, ErrTimeFormat:
		return true
	}
	return false
}

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		// CreateEntries persists all entries in a single transaction;
		// either every row lands or none do.
		CreateEntries(ctx context.Context, entries []Entry) ([]Entry, error)
		GetEntryByID(ctx context.Context, id string) (Entry, error)
		// GetTeacherDayEntries returns a teacher's entries for a day in insertion order.
		GetTeacherDayEntries(ctx context.Context, teacherID string, day Weekday) ([]Entry, error)
		// FilterEntries applies AND operation on available QueryFilter fields.
		FilterEntries(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Entry, error)
		UpdateEntry(ctx context.Context, entry Entry) (Entry, error)
		DeleteEntry(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		Create(ctx context.Context, schoolID string, ne NewEntry) (Entry, error)
		CreateWeek(ctx context.Context, schoolID string, nw NewWeek) (WeekSchedule, error)
		Update(ctx context.Context, schoolID, id string, ue UpdateEntry) (Entry, error)
		Delete(ctx context.Context, schoolID, id string) error
		GetByID(ctx context.Context, schoolID, id string) (Entry, error)
		Query(ctx context.Context, schoolID string, filter QueryFilter, ordering ...core.DBOrdering) ([]Entry, error)
		ByClass(ctx context.Context, schoolID, classID string, day Weekday) (ClassTimetable, error)
	}

	Service struct {
		repo    Repository
		dir     school.Directory
		mailSvc core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository, dir school.Directory, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, dir: dir, mailSvc: mailSvc}
}

// refs holds the master records backing a validated entry.
type refs struct {
	class   school.Class
	subject school.Subject
	teacher school.Teacher
}

// getSchoolClass resolves a class and hides it from principals of other
// schools: a cross-tenant reference is indistinguishable from a dangling one.
func (svc *Service) getSchoolClass(ctx context.Context, schoolID, classID string) (school.Class, error) {
	class, err := svc.dir.GetClassByID(ctx, classID)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return school.Class{}, ErrNotFound
		}
		return school.Class{}, errors.Wrap(err, "resolving class")
	}
	if class.SchoolID != schoolID {
		return school.Class{}, ErrNotFound
	}
	return class, nil
}

func (svc *Service) getSchoolSubject(ctx context.Context, schoolID, subjectID string) (school.Subject, error) {
	subject, err := svc.dir.GetSubjectByID(ctx, subjectID)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return school.Subject{}, ErrNotFound
		}
		return school.Subject{}, errors.Wrap(err, "resolving subject")
	}
	if subject.SchoolID != schoolID {
		return school.Subject{}, ErrNotFound
	}
	return subject, nil
}

func (svc *Service) getSchoolTeacher(ctx context.Context, schoolID, teacherID string) (school.Teacher, error) {
	teacher, err := svc.dir.GetTeacherByID(ctx, teacherID)
	if err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return school.Teacher{}, ErrNotFound
		}
		return school.Teacher{}, errors.Wrap(err, "resolving teacher")
	}
	if teacher.SchoolID != schoolID {
		return school.Teacher{}, ErrNotFound
	}
	return teacher, nil
}

// parseRange parses both bounds and enforces start < end.
func parseRange(startTime, endTime string) (startMin, endMin int, err error) {
	if startMin, err = ParseMinutes(startTime); err != nil {
		return 0, 0, core.NewValidationError(err, core.FieldError{Field: "start_time", Error: err.Error()})
	}
	if endMin, err = ParseMinutes(endTime); err != nil {
		return 0, 0, core.NewValidationError(err, core.FieldError{Field: "end_time", Error: err.Error()})
	}
	if startMin >= endMin {
		return 0, 0, ErrInvalidTimeRange
	}
	return startMin, endMin, nil
}

// findClash returns the first entry of (teacherID, day) whose interval
// overlaps [startMin, endMin), or nil when the slot is free. Stored entries
// are scanned in insertion order, then the unsaved siblings of the same batch;
// excludeID skips an entry being re-validated against its own prior state.
func (svc *Service) findClash(
	ctx context.Context,
	teacherID string,
	day Weekday,
	startMin, endMin int,
	excludeID string,
	siblings []Entry,
) (*Entry, error) {
	existing, err := svc.repo.GetTeacherDayEntries(ctx, teacherID, day)
	if err != nil {
		return nil, errors.Wrap(err, "querying teacher's day entries")
	}

	candidates := make([]Entry, 0, len(existing)+len(siblings))
	candidates = append(candidates, existing...)
	for _, s := range siblings {
		if s.TeacherID == teacherID && s.Day == day {
			candidates = append(candidates, s)
		}
	}

	for _, cand := range candidates {
		if excludeID != "" && cand.ID == excludeID {
			continue
		}
		s, err := ParseMinutes(cand.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "stored entry %s has a corrupt start time", cand.ID)
		}
		e, err := ParseMinutes(cand.EndTime)
		if err != nil {
			return nil, errors.Wrapf(err, "stored entry %s has a corrupt end time", cand.ID)
		}
		if Overlaps(startMin, endMin, s, e) {
			clash := cand
			return &clash, nil
		}
	}
	return nil, nil
}

// validateSlot runs the reference, assignment and conflict checks shared by
// single and bulk creation: subject and teacher must exist in the school, the
// teacher must be the subject's assigned teacher, and the slot must be free.
// The class is resolved by the caller (once per batch).
func (svc *Service) validateSlot(
	ctx context.Context,
	schoolID string,
	class school.Class,
	ne NewEntry,
	startMin, endMin int,
	siblings []Entry,
) (refs, error) {
	subject, err := svc.getSchoolSubject(ctx, schoolID, ne.SubjectID)
	if err != nil {
		return refs{}, err
	}
	teacher, err := svc.getSchoolTeacher(ctx, schoolID, ne.TeacherID)
	if err != nil {
		return refs{}, err
	}
	if subject.TeacherID != ne.TeacherID {
		return refs{}, ErrAssignmentMismatch
	}

	clash, err := svc.findClash(ctx, ne.TeacherID, ne.Day, startMin, endMin, "", siblings)
	if err != nil {
		return refs{}, err
	}
	if clash != nil {
		if err := svc.enrich(ctx, clash); err != nil {
			return refs{}, err
		}
		return refs{}, &ConflictError{Conflicting: *clash}
	}

	return refs{class: class, subject: subject, teacher: teacher}, nil
}

func newEntryFromRefs(ne NewEntry, r refs) Entry {
	now := time.Now().UTC()
	return Entry{
		ClassID:     r.class.ID,
		Day:         ne.Day,
		StartTime:   ne.StartTime,
		EndTime:     ne.EndTime,
		SubjectID:   r.subject.ID,
		TeacherID:   r.teacher.ID,
		Room:        ne.Room,
		ClassName:   r.class.Name,
		SubjectName: r.subject.Name,
		TeacherName: r.teacher.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Create schedules a single entry. The caller has already established that
// the acting principal administers schoolID.
func (svc *Service) Create(ctx context.Context, schoolID string, ne NewEntry) (Entry, error) {
	startMin, endMin, err := parseRange(ne.StartTime, ne.EndTime)
	if err != nil {
		return Entry{}, err
	}
	class, err := svc.getSchoolClass(ctx, schoolID, ne.ClassID)
	if err != nil {
		return Entry{}, err
	}

	r, err := svc.validateSlot(ctx, schoolID, class, ne, startMin, endMin, nil)
	if err != nil {
		return Entry{}, err
	}

	entry, err := svc.repo.CreateEntry(ctx, newEntryFromRefs(ne, r))
	if err != nil {
		return Entry{}, err
	}
	entry.ClassName, entry.SubjectName, entry.TeacherName = r.class.Name, r.subject.Name, r.teacher.Name
	return entry, nil
}

// CreateWeek schedules a whole week for one class, all-or-nothing. Every
// entry is validated independently — against the persisted store and against
// the already-validated siblings of the same batch — and all failures are
// reported together; nothing is persisted unless the batch is clean.
func (svc *Service) CreateWeek(ctx context.Context, schoolID string, nw NewWeek) (WeekSchedule, error) {
	class, err := svc.getSchoolClass(ctx, schoolID, nw.ClassID)
	if err != nil {
		return WeekSchedule{}, err
	}

	validated := make([]Entry, 0, len(nw.Entries))
	var entryErrs []EntryError

	fail := func(i int, ne NewEntry, err error) {
		entryErrs = append(entryErrs, EntryError{
			Index:     i,
			Day:       ne.Day,
			StartTime: ne.StartTime,
			EndTime:   ne.EndTime,
			Err:       err,
		})
	}

	for i, ne := range nw.Entries {
		ne := ne
		if ne.ClassID == "" {
			ne.ClassID = nw.ClassID
		}
		if ne.ClassID != nw.ClassID {
			fail(i, ne, ErrInconsistentBatch)
			continue
		}
		if err := ne.Validate(); err != nil {
			fail(i, ne, err)
			continue
		}
		startMin, endMin, err := parseRange(ne.StartTime, ne.EndTime)
		if err != nil {
			fail(i, ne, err)
			continue
		}
		r, err := svc.validateSlot(ctx, schoolID, class, ne, startMin, endMin, validated)
		if err != nil {
			if !isSchedulingErr(err) {
				return WeekSchedule{}, err // infrastructure failure, not the batch's fault
			}
			fail(i, ne, err)
			continue
		}
		validated = append(validated, newEntryFromRefs(ne, r))
	}

	if len(entryErrs) > 0 {
		return WeekSchedule{}, &BatchError{Errors: entryErrs}
	}

	created, err := svc.repo.CreateEntries(ctx, validated)
	if err != nil {
		return WeekSchedule{}, err
	}
	for i := range created {
		if err := svc.enrich(ctx, &created[i]); err != nil {
			return WeekSchedule{}, err
		}
	}

	svc.notifyWeekPublished(ctx, class, created)
	return WeekSchedule{
		Message: fmt.Sprintf("weekly timetable created for %s", class.Name),
		Class:   class,
		Entries: created,
	}, nil
}

// Update patches an existing entry; unpatched fields are retained and the
// result is re-validated exactly as at creation.
func (svc *Service) Update(ctx context.Context, schoolID, id string, ue UpdateEntry) (Entry, error) {
	orig, err := svc.getSchoolEntry(ctx, schoolID, id)
	if err != nil {
		return Entry{}, err
	}

	if err := ue.Validate(orig); err != nil {
		return Entry{}, err
	}

	startMin, endMin, err := parseRange(ue.StartTime, ue.EndTime)
	if err != nil {
		return Entry{}, err
	}

	entry := orig
	entry.Day = ue.Day
	entry.StartTime = ue.StartTime
	entry.EndTime = ue.EndTime
	entry.SubjectID = ue.SubjectID
	entry.TeacherID = ue.TeacherID
	if ue.Room != nil {
		entry.Room = core.CleanString(*ue.Room)
	}

	if entry.SubjectID != orig.SubjectID || entry.TeacherID != orig.TeacherID {
		subject, err := svc.getSchoolSubject(ctx, schoolID, entry.SubjectID)
		if err != nil {
			return Entry{}, err
		}
		if _, err := svc.getSchoolTeacher(ctx, schoolID, entry.TeacherID); err != nil {
			return Entry{}, err
		}
		if subject.TeacherID != entry.TeacherID {
			return Entry{}, ErrAssignmentMismatch
		}
	}

	timesChanged := entry.StartTime != orig.StartTime || entry.EndTime != orig.EndTime
	if entry.TeacherID != orig.TeacherID || entry.Day != orig.Day || timesChanged {
		clash, err := svc.findClash(ctx, entry.TeacherID, entry.Day, startMin, endMin, entry.ID, nil)
		if err != nil {
			return Entry{}, err
		}
		if clash != nil {
			if err := svc.enrich(ctx, clash); err != nil {
				return Entry{}, err
			}
			return Entry{}, &ConflictError{Conflicting: *clash}
		}
	}

	entry.UpdatedAt = time.Now().UTC()
	entry, err = svc.repo.UpdateEntry(ctx, entry)
	if err != nil {
		return Entry{}, err
	}
	if err := svc.enrich(ctx, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := svc.getSchoolEntry(ctx, schoolID, id); err != nil {
		return err
	}
	return svc.repo.DeleteEntry(ctx, id)
}

func (svc *Service) GetByID(ctx context.Context, schoolID, id string) (Entry, error) {
	entry, err := svc.getSchoolEntry(ctx, schoolID, id)
	if err != nil {
		return Entry{}, err
	}
	if err := svc.enrich(ctx, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Query returns the school's entries matching the filter. Entries carry no
// school column; tenancy is derived through each entry's class.
func (svc *Service) Query(
	ctx context.Context,
	schoolID string,
	filter QueryFilter,
	ordering ...core.DBOrdering,
) ([]Entry, error) {
	filter.Clean()
	entries, err := svc.repo.FilterEntries(ctx, filter, ordering...)
	if err != nil {
		return nil, err
	}

	classes := make(map[string]school.Class)
	scoped := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		class, ok := classes[entry.ClassID]
		if !ok {
			if class, err = svc.getSchoolClass(ctx, schoolID, entry.ClassID); err != nil {
				if err == ErrNotFound {
					continue // another school's entry
				}
				return nil, err
			}
			classes[entry.ClassID] = class
		}
		entry.ClassName = class.Name
		if err := svc.enrich(ctx, &entry); err != nil {
			return nil, err
		}
		scoped = append(scoped, entry)
	}
	return scoped, nil
}

// ByClass returns a class's entries grouped into the fixed Monday→Sunday
// grid; days without entries are present as empty lists. An optional day
// narrows the entries while keeping all seven keys.
func (svc *Service) ByClass(ctx context.Context, schoolID, classID string, day Weekday) (ClassTimetable, error) {
	class, err := svc.getSchoolClass(ctx, schoolID, classID)
	if err != nil {
		return ClassTimetable{}, err
	}

	entries, err := svc.repo.FilterEntries(ctx, QueryFilter{ClassID: classID, Day: day})
	if err != nil {
		return ClassTimetable{}, err
	}

	ct := ClassTimetable{Class: class, Timetable: NewWeekGrid(), TotalEntries: len(entries)}
	for i := range entries {
		if err := svc.enrich(ctx, &entries[i]); err != nil {
			return ClassTimetable{}, err
		}
		ct.Timetable.add(entries[i])
	}
	return ct, nil
}

// getSchoolEntry loads an entry and hides it from other schools' principals
// (tenancy is derived through the entry's class).
func (svc *Service) getSchoolEntry(ctx context.Context, schoolID, id string) (Entry, error) {
	entry, err := svc.repo.GetEntryByID(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	if _, err := svc.getSchoolClass(ctx, schoolID, entry.ClassID); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// enrich fills the display fields from the directory.
func (svc *Service) enrich(ctx context.Context, entry *Entry) error {
	if entry.ClassName == "" {
		class, err := svc.dir.GetClassByID(ctx, entry.ClassID)
		if err != nil && errors.Cause(err) != school.ErrNotFound {
			return errors.Wrap(err, "resolving class name")
		}
		entry.ClassName = class.Name
	}
	if entry.SubjectName == "" {
		subject, err := svc.dir.GetSubjectByID(ctx, entry.SubjectID)
		if err != nil && errors.Cause(err) != school.ErrNotFound {
			return errors.Wrap(err, "resolving subject name")
		}
		entry.SubjectName = subject.Name
	}
	if entry.TeacherName == "" {
		teacher, err := svc.dir.GetTeacherByID(ctx, entry.TeacherID)
		if err != nil && errors.Cause(err) != school.ErrNotFound {
			return errors.Wrap(err, "resolving teacher name")
		}
		entry.TeacherName = teacher.Name
	}
	return nil
}

// notifyWeekPublished emails each affected teacher their slots for the newly
// published week. Delivery is fire-and-forget; scheduling never fails on it.
func (svc *Service) notifyWeekPublished(ctx context.Context, class school.Class, entries []Entry) {
	if svc.mailSvc == nil {
		return
	}

	byTeacher := make(map[string][]Entry)
	for _, entry := range entries {
		byTeacher[entry.TeacherID] = append(byTeacher[entry.TeacherID], entry)
	}

	messages := make([]*core.EmailMessage, 0, len(byTeacher))
	for teacherID, slots := range byTeacher {
		teacher, err := svc.dir.GetTeacherByID(ctx, teacherID)
		if err != nil || teacher.Email == "" {
			continue
		}
		body := fmt.Sprintf("The weekly timetable for %s has been published. Your slots:\n", class.Name)
		for _, s := range slots {
			body += fmt.Sprintf("- %s %s-%s: %s", s.Day, s.StartTime, s.EndTime, s.SubjectName)
			if s.Room != "" {
				body += " (" + s.Room + ")"
			}
			body += "\n"
		}
		messages = append(messages, &core.EmailMessage{
			To:          []mail.Address{{Name: teacher.Name, Address: teacher.Email}},
			Subject:     "Weekly timetable published: " + class.Name,
			TextContent: body,
		})
	}
	svc.mailSvc.SendMessages(messages...)
}
