package testutil

import (
	"context"
	"testing"

	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
	dummydb "github.com/trezcool/ratiba/storage/database/dummy"
)

func CreateClass(t *testing.T, db *dummydb.DB, schoolID, name string) school.Class {
	t.Helper()
	return db.AddClass(school.Class{SchoolID: schoolID, Name: name})
}

func CreateSubject(t *testing.T, db *dummydb.DB, schoolID, name, teacherID string) school.Subject {
	t.Helper()
	return db.AddSubject(school.Subject{SchoolID: schoolID, Name: name, TeacherID: teacherID})
}

func CreateTeacher(t *testing.T, db *dummydb.DB, schoolID, name, email string) school.Teacher {
	t.Helper()
	return db.AddTeacher(school.Teacher{SchoolID: schoolID, Name: name, Email: email})
}

func CreateEntry(
	t *testing.T,
	repo schedule.Repository,
	class school.Class,
	subject school.Subject,
	teacher school.Teacher,
	day schedule.Weekday,
	startTime, endTime string,
) schedule.Entry {
	t.Helper()
	entry, err := repo.CreateEntry(context.Background(), schedule.Entry{
		ClassID:   class.ID,
		Day:       day,
		StartTime: startTime,
		EndTime:   endTime,
		SubjectID: subject.ID,
		TeacherID: teacher.ID,
	})
	if err != nil {
		t.Fatalf("CreateEntry() failed: %v", err)
	}
	return entry
}
