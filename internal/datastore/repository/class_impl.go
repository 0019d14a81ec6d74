package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// classRepository implements ClassRepository.
type classRepository struct {
	db *gorm.DB
}

// NewClassRepository creates a new ClassRepository.
func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

// GetClass returns a class by ID.
func (r *classRepository) GetClass(ctx context.Context, id string) (*entities.Class, error) {
	var class entities.Class
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&class).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, fmt.Errorf("failed to get class %s: %w", id, err)
	}
	return &class, nil
}

// ListClassIDs returns the IDs of all classes in scope.
func (r *classRepository) ListClassIDs(ctx context.Context, tenantID string, schoolIDs []string) ([]string, error) {
	var ids []string
	query := r.db.WithContext(ctx).Model(&entities.Class{}).Where("tenant_id = ?", tenantID)
	if len(schoolIDs) > 0 {
		query = query.Where("school_id IN ?", schoolIDs)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list class IDs: %w", err)
	}
	return ids, nil
}

// ListCappedClassIDs returns IDs of classes with a capacity limit set.
func (r *classRepository) ListCappedClassIDs(ctx context.Context, tenantID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entities.Class{}).
		Where("tenant_id = ? AND max_capacity IS NOT NULL", tenantID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list capped class IDs: %w", err)
	}
	return ids, nil
}

// CountActiveEnrollments counts enrollments that occupy a seat.
func (r *classRepository) CountActiveEnrollments(ctx context.Context, classID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Enrollment{}).
		Where("class_id = ? AND status = ?", classID, entities.EnrollmentStatusActive).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count enrollments for class %s: %w", classID, err)
	}
	return count, nil
}

// SetCapacity updates a class's capacity limit and warning threshold.
func (r *classRepository) SetCapacity(ctx context.Context, classID string, maxCapacity *int, warningThresholdPercent int) error {
	result := r.db.WithContext(ctx).Model(&entities.Class{}).
		Where("id = ?", classID).
		Updates(map[string]any{
			"max_capacity":              maxCapacity,
			"warning_threshold_percent": warningThresholdPercent,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to set capacity for class %s: %w", classID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrClassNotFound
	}
	return nil
}

// studentRepository implements StudentRepository.
type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

// GetStudent returns a student by ID.
func (r *studentRepository) GetStudent(ctx context.Context, id string) (*entities.Student, error) {
	var student entities.Student
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student %s: %w", id, err)
	}
	return &student, nil
}

// ListStudentIDs returns the IDs of all students in scope.
func (r *studentRepository) ListStudentIDs(ctx context.Context, tenantID string, schoolIDs []string) ([]string, error) {
	var ids []string
	query := r.db.WithContext(ctx).Model(&entities.Student{}).Where("tenant_id = ?", tenantID)
	if len(schoolIDs) > 0 {
		query = query.Where("school_id IN ?", schoolIDs)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list student IDs: %w", err)
	}
	return ids, nil
}
