package datastore

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/datastore/repository"
)

const (
	snapshotTTL     = 30 * time.Second
	snapshotCleanup = 5 * time.Minute
)

// SnapshotProvider serves entity snapshots from the datastore. Snapshots are
// cached briefly so a scheduler pass over many rules does not hammer the
// database with repeated reads of the same entity.
type SnapshotProvider struct {
	classes  repository.ClassRepository
	students repository.StudentRepository
	cache    *gocache.Cache
}

// NewSnapshotProvider creates a datastore-backed snapshot provider.
func NewSnapshotProvider(classes repository.ClassRepository, students repository.StudentRepository) *SnapshotProvider {
	return &SnapshotProvider{
		classes:  classes,
		students: students,
		cache:    gocache.New(snapshotTTL, snapshotCleanup),
	}
}

// GetSnapshot returns the requested fields of one entity. The full snapshot
// is built and cached; field selection is applied on the way out.
func (p *SnapshotProvider) GetSnapshot(ctx context.Context, entityType, entityID string, fields []string) (alerting.Snapshot, error) {
	cacheKey := entityType + ":" + entityID
	if cached, found := p.cache.Get(cacheKey); found {
		return selectFields(cached.(alerting.Snapshot), fields), nil
	}

	var snap alerting.Snapshot
	var err error
	switch entityType {
	case alerting.EntityTypeClass:
		snap, err = p.classSnapshot(ctx, entityID)
	case alerting.EntityTypeStudent:
		snap, err = p.studentSnapshot(ctx, entityID)
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
	if err != nil {
		return nil, err
	}

	p.cache.Set(cacheKey, snap, gocache.DefaultExpiration)
	return selectFields(snap, fields), nil
}

// ListEntityIDs returns the IDs of all entities of a type in scope.
func (p *SnapshotProvider) ListEntityIDs(ctx context.Context, entityType, tenantID string, schoolIDs []string) ([]string, error) {
	switch entityType {
	case alerting.EntityTypeClass:
		return p.classes.ListClassIDs(ctx, tenantID, schoolIDs)
	case alerting.EntityTypeStudent:
		return p.students.ListStudentIDs(ctx, tenantID, schoolIDs)
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
}

// Invalidate drops the cached snapshot of one entity. Called on enrollment
// and capacity changes so realtime evaluation sees fresh data.
func (p *SnapshotProvider) Invalidate(entityType, entityID string) {
	p.cache.Delete(entityType + ":" + entityID)
}

func (p *SnapshotProvider) classSnapshot(ctx context.Context, classID string) (alerting.Snapshot, error) {
	class, err := p.classes.GetClass(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to load class snapshot: %w", err)
	}
	count, err := p.classes.CountActiveEnrollments(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to count enrollments: %w", err)
	}
	return alerting.Snapshot{
		alerting.FieldName:               class.Name,
		alerting.FieldCurrentEnrollments: int(count),
		alerting.FieldMaxCapacity:        class.MaxCapacity,
	}, nil
}

func (p *SnapshotProvider) studentSnapshot(ctx context.Context, studentID string) (alerting.Snapshot, error) {
	student, err := p.students.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student snapshot: %w", err)
	}
	return alerting.Snapshot{
		alerting.FieldName:             student.FullName,
		alerting.FieldAbsences30d:      student.Absences30d,
		alerting.FieldPresentDays:      student.PresentDays,
		alerting.FieldTrackedDays:      student.TrackedDays,
		alerting.FieldLastAttendanceAt: student.LastAttendanceAt,
		alerting.FieldEnrolledAt:       student.EnrolledAt,
	}, nil
}

// selectFields narrows a snapshot to the requested fields. A nil or empty
// selection returns the full snapshot.
func selectFields(snap alerting.Snapshot, fields []string) alerting.Snapshot {
	if len(fields) == 0 {
		return snap
	}
	out := make(alerting.Snapshot, len(fields))
	for _, f := range fields {
		if v, ok := snap[f]; ok {
			out[f] = v
		}
	}
	return out
}
