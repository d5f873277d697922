package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/schedule"
)

// exclusionViolation is raised by the teacher_day_no_overlap constraint when
// a concurrent writer slipped past the service-level clash check.
const exclusionViolation = pq.ErrorCode("23P01")

const entryColumns = "id, class_id, day, start_time, end_time, subject_id, teacher_id, room, created_at, updated_at"

type entryRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*entryRepository)(nil) // interface compliance check

func NewEntryRepository(db *sql.DB) *entryRepository {
	return &entryRepository{db: sqlx.NewDb(db, "postgres")}
}

type entryRow struct {
	ID        string      `db:"id"`
	ClassID   string      `db:"class_id"`
	Day       string      `db:"day"`
	StartTime string      `db:"start_time"`
	EndTime   string      `db:"end_time"`
	SubjectID string      `db:"subject_id"`
	TeacherID string      `db:"teacher_id"`
	Room      null.String `db:"room"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (repo entryRepository) toRow(entry schedule.Entry) entryRow {
	return entryRow{
		ID:        entry.ID,
		ClassID:   entry.ClassID,
		Day:       string(entry.Day),
		StartTime: entry.StartTime,
		EndTime:   entry.EndTime,
		SubjectID: entry.SubjectID,
		TeacherID: entry.TeacherID,
		Room:      null.NewString(entry.Room, entry.Room != ""),
		CreatedAt: entry.CreatedAt.UTC(),
		UpdatedAt: entry.UpdatedAt.UTC(),
	}
}

func (repo entryRepository) fromRow(row entryRow) schedule.Entry {
	return schedule.Entry{
		ID:        row.ID,
		ClassID:   row.ClassID,
		Day:       schedule.Weekday(row.Day),
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		SubjectID: row.SubjectID,
		TeacherID: row.TeacherID,
		Room:      row.Room.String,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo entryRepository) fromRows(rows []entryRow) []schedule.Entry {
	entries := make([]schedule.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, repo.fromRow(row))
	}
	return entries
}

// wrapErr wraps a database error, promoting a dead connection to a shutdown
// error so the API stops taking requests it can no longer serve.
func wrapErr(err error, msg string) error {
	if errors.Cause(err) == driver.ErrBadConn {
		return core.NewShutdownError(errors.Wrap(err, msg))
	}
	return errors.Wrap(err, msg)
}

// trapConflictErr converts an exclusion violation into a ScheduleConflict
// carrying the entry that is in the way of the attempted one.
func (repo entryRepository) trapConflictErr(ctx context.Context, err error, attempted schedule.Entry, msg string) error {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	if !ok || pqErr.Code != exclusionViolation {
		return wrapErr(err, msg)
	}

	var row entryRow
	query := `SELECT ` + entryColumns + ` FROM timetable_entry
		WHERE teacher_id = $1 AND day = $2 AND id <> $5
		  AND int4range(start_min, end_min) && int4range($3, $4)
		ORDER BY created_at, id LIMIT 1`
	startMin, perr := schedule.ParseMinutes(attempted.StartTime)
	if perr != nil {
		return errors.Wrap(err, msg)
	}
	endMin, perr := schedule.ParseMinutes(attempted.EndTime)
	if perr != nil {
		return errors.Wrap(err, msg)
	}
	if gerr := repo.db.GetContext(ctx, &row, query, attempted.TeacherID, string(attempted.Day), startMin, endMin, attempted.ID); gerr != nil {
		return errors.Wrap(err, msg)
	}
	return &schedule.ConflictError{Conflicting: repo.fromRow(row)}
}

const insertEntryStmt = `INSERT INTO timetable_entry (` + entryColumns + `)
	VALUES (:id, :class_id, :day, :start_time, :end_time, :subject_id, :teacher_id, :room, :created_at, :updated_at)`

func (repo entryRepository) CreateEntry(ctx context.Context, entry schedule.Entry) (schedule.Entry, error) {
	entry.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertEntryStmt, repo.toRow(entry)); err != nil {
		return schedule.Entry{}, repo.trapConflictErr(ctx, err, entry, "inserting entry")
	}
	return entry, nil
}

func (repo entryRepository) CreateEntries(ctx context.Context, entries []schedule.Entry) ([]schedule.Entry, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, wrapErr(err, "beginning transaction")
	}

	created := make([]schedule.Entry, 0, len(entries))
	for _, entry := range entries {
		entry.ID = uuid.New().String()
		if _, err := tx.NamedExecContext(ctx, insertEntryStmt, repo.toRow(entry)); err != nil {
			_ = tx.Rollback()
			return nil, repo.trapConflictErr(ctx, err, entry, "inserting batch entry")
		}
		created = append(created, entry)
	}

	if err := tx.Commit(); err != nil {
		return nil, wrapErr(err, "committing batch")
	}
	return created, nil
}

func (repo entryRepository) GetEntryByID(ctx context.Context, id string) (schedule.Entry, error) {
	var row entryRow
	query := `SELECT ` + entryColumns + ` FROM timetable_entry WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, query, id); err != nil {
		if err == sql.ErrNoRows {
			return schedule.Entry{}, schedule.ErrNotFound
		}
		return schedule.Entry{}, wrapErr(err, "getting entry by id")
	}
	return repo.fromRow(row), nil
}

func (repo entryRepository) GetTeacherDayEntries(ctx context.Context, teacherID string, day schedule.Weekday) ([]schedule.Entry, error) {
	var rows []entryRow
	query := `SELECT ` + entryColumns + ` FROM timetable_entry
		WHERE teacher_id = $1 AND day = $2 ORDER BY created_at, id`
	if err := repo.db.SelectContext(ctx, &rows, query, teacherID, string(day)); err != nil {
		return nil, wrapErr(err, "querying teacher day entries")
	}
	return repo.fromRows(rows), nil
}

// orderableColumns guards ORDER BY terms against arbitrary caller input.
var orderableColumns = map[string]bool{
	"day":        true,
	"start_time": true,
	"end_time":   true,
	"class_id":   true,
	"teacher_id": true,
	"created_at": true,
}

func (repo entryRepository) FilterEntries(
	ctx context.Context,
	filter schedule.QueryFilter,
	ordering ...core.DBOrdering,
) ([]schedule.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM timetable_entry`
	where := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)

	addWhere := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, cond)
	}
	if filter.ClassID != "" {
		addWhere("class_id = ?", filter.ClassID)
	}
	if filter.TeacherID != "" {
		addWhere("teacher_id = ?", filter.TeacherID)
	}
	if filter.Day != "" {
		addWhere("day = ?", string(filter.Day))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if orderableColumns[ord.Field] {
			orderBy = append(orderBy, ord.String())
		}
	}
	if len(orderBy) == 0 {
		orderBy = append(orderBy, "created_at ASC", "id ASC")
	}
	query += " ORDER BY " + strings.Join(orderBy, ", ")

	var rows []entryRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, wrapErr(err, "filtering entries")
	}
	return repo.fromRows(rows), nil
}

func (repo entryRepository) UpdateEntry(ctx context.Context, entry schedule.Entry) (schedule.Entry, error) {
	stmt := `UPDATE timetable_entry
		SET day = :day, start_time = :start_time, end_time = :end_time,
		    subject_id = :subject_id, teacher_id = :teacher_id, room = :room,
		    updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, stmt, repo.toRow(entry))
	if err != nil {
		return schedule.Entry{}, repo.trapConflictErr(ctx, err, entry, "updating entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.Entry{}, schedule.ErrNotFound
	}
	return entry, nil
}

func (repo entryRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM timetable_entry WHERE id = $1`, id)
	if err != nil {
		return wrapErr(err, "deleting entry")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
