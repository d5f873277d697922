package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

type entryRepository struct {
	db *entryTable
}

var _ schedule.Repository = (*entryRepository)(nil) // interface compliance check

func NewEntryRepository(db *DB) schedule.Repository {
	return &entryRepository{db: db.entry}
}

func (repo *entryRepository) query() []schedule.Entry {
	entries := make([]schedule.Entry, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		entries = append(entries, *repo.db.table[id])
	}
	return entries
}

// clash mirrors the teacher_day_no_overlap exclusion constraint; the service
// normally catches overlaps first but concurrent writers may slip past it.
func (repo *entryRepository) clash(entry schedule.Entry) error {
	start, err := schedule.ParseMinutes(entry.StartTime)
	if err != nil {
		return err
	}
	end, err := schedule.ParseMinutes(entry.EndTime)
	if err != nil {
		return err
	}
	for _, id := range repo.db.order {
		stored := repo.db.table[id]
		if stored.ID == entry.ID || stored.TeacherID != entry.TeacherID || stored.Day != entry.Day {
			continue
		}
		sStart, err := schedule.ParseMinutes(stored.StartTime)
		if err != nil {
			return err
		}
		sEnd, err := schedule.ParseMinutes(stored.EndTime)
		if err != nil {
			return err
		}
		if schedule.Overlaps(start, end, sStart, sEnd) {
			return &schedule.ConflictError{Conflicting: *stored}
		}
	}
	return nil
}

func (repo *entryRepository) insert(entry schedule.Entry) (schedule.Entry, error) {
	if err := repo.clash(entry); err != nil {
		return schedule.Entry{}, err
	}
	entry.ID = uuid.New().String()
	// display names are not columns; they are resolved on read
	entry.ClassName, entry.SubjectName, entry.TeacherName = "", "", ""
	repo.db.table[entry.ID] = &entry
	repo.db.order = append(repo.db.order, entry.ID)
	return entry, nil
}

func (repo *entryRepository) CreateEntry(_ context.Context, entry schedule.Entry) (schedule.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.insert(entry)
}

func (repo *entryRepository) CreateEntries(_ context.Context, entries []schedule.Entry) ([]schedule.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]schedule.Entry, 0, len(entries))
	for _, entry := range entries {
		saved, err := repo.insert(entry)
		if err != nil {
			// roll the batch back
			for _, s := range created {
				delete(repo.db.table, s.ID)
				repo.db.order = repo.db.order[:len(repo.db.order)-1]
			}
			return nil, err
		}
		created = append(created, saved)
	}
	return created, nil
}

func (repo *entryRepository) GetEntryByID(_ context.Context, id string) (schedule.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if entry, ok := repo.db.table[id]; ok {
		return *entry, nil
	}
	return schedule.Entry{}, schedule.ErrNotFound
}

func (repo *entryRepository) GetTeacherDayEntries(_ context.Context, teacherID string, day schedule.Weekday) ([]schedule.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []schedule.Entry
	for _, entry := range repo.query() {
		if entry.TeacherID == teacherID && entry.Day == day {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (repo *entryRepository) FilterEntries(_ context.Context, filter schedule.QueryFilter, ordering ...core.DBOrdering) ([]schedule.Entry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []schedule.Entry
	for _, entry := range repo.query() {
		if filter.ClassID != "" && entry.ClassID != filter.ClassID {
			continue
		}
		if filter.TeacherID != "" && entry.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Day != "" && entry.Day != filter.Day {
			continue
		}
		entries = append(entries, entry)
	}

	for _, ord := range ordering {
		if ord.Field == "start_time" {
			asc := ord.Ascending
			sort.SliceStable(entries, func(i, j int) bool {
				if asc {
					return entries[i].StartTime < entries[j].StartTime
				}
				return entries[i].StartTime > entries[j].StartTime
			})
		}
	}
	return entries, nil
}

func (repo *entryRepository) UpdateEntry(_ context.Context, entry schedule.Entry) (schedule.Entry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[entry.ID]
	if !ok {
		return schedule.Entry{}, schedule.ErrNotFound
	}
	if err := repo.clash(entry); err != nil {
		return schedule.Entry{}, err
	}

	orig.Day = entry.Day
	orig.StartTime = entry.StartTime
	orig.EndTime = entry.EndTime
	orig.SubjectID = entry.SubjectID
	orig.TeacherID = entry.TeacherID
	orig.Room = entry.Room
	orig.UpdatedAt = entry.UpdatedAt
	return *orig, nil
}

func (repo *entryRepository) DeleteEntry(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return schedule.ErrNotFound
	}
	delete(repo.db.table, id)
	for i, oid := range repo.db.order {
		if oid == id {
			repo.db.order = append(repo.db.order[:i], repo.db.order[i+1:]...)
			break
		}
	}
	return nil
}
