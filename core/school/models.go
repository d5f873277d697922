package school

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// School master records are owned by an external administration service;
// this package only defines the shapes the scheduling core reads.
type (
	School struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Class struct {
		ID       string `json:"id"`
		SchoolID string `json:"school_id"`
		Name     string `json:"name"`
	}

	Subject struct {
		ID       string `json:"id"`
		SchoolID string `json:"school_id"`
		Name     string `json:"name"`
		// TeacherID is the teacher currently assigned to teach this subject.
		TeacherID string `json:"teacher_id"`
	}

	Teacher struct {
		ID       string `json:"id"`
		SchoolID string `json:"school_id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
	}
)

// Directory looks up master records by id. Implementations are expected to be
// read-only from the scheduling core's point of view.
type Directory interface {
	GetClassByID(ctx context.Context, id string) (Class, error)
	GetSubjectByID(ctx context.Context, id string) (Subject, error)
	GetTeacherByID(ctx context.Context, id string) (Teacher, error)
}
