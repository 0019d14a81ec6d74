package repository

import (
	"context"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// ClassRepository reads and updates class capacity data.
type ClassRepository interface {
	GetClass(ctx context.Context, id string) (*entities.Class, error)
	ListClassIDs(ctx context.Context, tenantID string, schoolIDs []string) ([]string, error)
	// ListCappedClassIDs returns classes with a capacity limit set,
	// for the periodic drift sweep.
	ListCappedClassIDs(ctx context.Context, tenantID string) ([]string, error)
	CountActiveEnrollments(ctx context.Context, classID string) (int64, error)
	SetCapacity(ctx context.Context, classID string, maxCapacity *int, warningThresholdPercent int) error
}

// StudentRepository reads student snapshot data.
type StudentRepository interface {
	GetStudent(ctx context.Context, id string) (*entities.Student, error)
	ListStudentIDs(ctx context.Context, tenantID string, schoolIDs []string) ([]string, error)
}
