package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/ratiba/core/school"
)

type directory struct {
	db *DB
}

var _ school.Directory = (*directory)(nil) // interface compliance check

func NewDirectory(db *DB) school.Directory {
	return &directory{db: db}
}

func (dir *directory) GetClassByID(_ context.Context, id string) (school.Class, error) {
	dir.db.class.RLock()
	defer dir.db.class.RUnlock()

	if class, ok := dir.db.class.table[id]; ok {
		return *class, nil
	}
	return school.Class{}, school.ErrNotFound
}

func (dir *directory) GetSubjectByID(_ context.Context, id string) (school.Subject, error) {
	dir.db.subject.RLock()
	defer dir.db.subject.RUnlock()

	if subject, ok := dir.db.subject.table[id]; ok {
		return *subject, nil
	}
	return school.Subject{}, school.ErrNotFound
}

func (dir *directory) GetTeacherByID(_ context.Context, id string) (school.Teacher, error) {
	dir.db.teacher.RLock()
	defer dir.db.teacher.RUnlock()

	if teacher, ok := dir.db.teacher.table[id]; ok {
		return *teacher, nil
	}
	return school.Teacher{}, school.ErrNotFound
}

// AddClass seeds a class; tests use it to stand in for the registry service.
func (db *DB) AddClass(class school.Class) school.Class {
	db.class.Lock()
	defer db.class.Unlock()

	if class.ID == "" {
		class.ID = uuid.New().String()
	}
	db.class.table[class.ID] = &class
	return class
}

func (db *DB) AddSubject(subject school.Subject) school.Subject {
	db.subject.Lock()
	defer db.subject.Unlock()

	if subject.ID == "" {
		subject.ID = uuid.New().String()
	}
	db.subject.table[subject.ID] = &subject
	return subject
}

func (db *DB) AddTeacher(teacher school.Teacher) school.Teacher {
	db.teacher.Lock()
	defer db.teacher.Unlock()

	if teacher.ID == "" {
		teacher.ID = uuid.New().String()
	}
	db.teacher.table[teacher.ID] = &teacher
	return teacher
}
