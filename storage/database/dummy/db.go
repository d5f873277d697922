package dummydb

import (
	"sync"

	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/school"
)

type (
	DB struct {
		entry   *entryTable
		class   *classTable
		subject *subjectTable
		teacher *teacherTable
	}

	entryTable struct {
		sync.RWMutex
		table map[string]*schedule.Entry
		order []string // insertion order, map iteration is random
	}

	classTable struct {
		sync.RWMutex
		table map[string]*school.Class
	}

	subjectTable struct {
		sync.RWMutex
		table map[string]*school.Subject
	}

	teacherTable struct {
		sync.RWMutex
		table map[string]*school.Teacher
	}
)

func Open() (*DB, error) {
	db := &DB{
		entry:   &entryTable{table: make(map[string]*schedule.Entry)},
		class:   &classTable{table: make(map[string]*school.Class)},
		subject: &subjectTable{table: make(map[string]*school.Subject)},
		teacher: &teacherTable{table: make(map[string]*school.Teacher)},
	}
	return db, nil
}
