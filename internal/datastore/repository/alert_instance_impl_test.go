package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// newActiveAlert builds an active instance with its dedup key populated.
func newActiveAlert(ruleID *uint, ruleCode, tenantID, entityType, entityID string) *entities.AlertInstance {
	alert := &entities.AlertInstance{
		ID:          uuid.NewString(),
		RuleID:      ruleID,
		RuleCode:    ruleCode,
		EntityType:  entityType,
		EntityID:    entityID,
		TenantID:    tenantID,
		Severity:    "warning",
		Message:     "test alert",
		Status:      entities.AlertStatusActive,
		GeneratedAt: time.Now(),
	}
	key := entities.ActiveDedupKey(alert.RuleRef(), entityID)
	alert.DedupKey = &key
	return alert
}

func TestAlertInstanceRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertInstanceRepository(db)
	ctx := t.Context()

	ruleID := uint(7)
	alert := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-1")
	require.NoError(t, repo.CreateActive(ctx, alert))

	got, err := repo.GetByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, "student.high_absences", got.RuleCode)
	assert.Equal(t, "stu-1", got.EntityID)
	assert.Equal(t, entities.AlertStatusActive, got.Status)
	require.NotNil(t, got.DedupKey)
	assert.Equal(t, "rule:7|stu-1", *got.DedupKey)
}

func TestAlertInstanceRepository_DedupRejectsSecondActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertInstanceRepository(db)
	ctx := t.Context()

	ruleID := uint(1)
	first := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-1")
	require.NoError(t, repo.CreateActive(ctx, first))

	second := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-1")
	err := repo.CreateActive(ctx, second)
	require.ErrorIs(t, err, ErrDuplicateActiveAlert)

	// Different entity is a different key
	third := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-2")
	require.NoError(t, repo.CreateActive(ctx, third))
}

func TestAlertInstanceRepository_ResolvedRowsDoNotCollide(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertInstanceRepository(db)
	ctx := t.Context()

	ruleID := uint(1)
	first := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-1")
	require.NoError(t, repo.CreateActive(ctx, first))

	// Resolve clears the dedup key, freeing the slot
	now := time.Now()
	first.Status = entities.AlertStatusResolved
	first.ResolvedAt = &now
	first.DedupKey = nil
	require.NoError(t, repo.Save(ctx, first))

	second := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-1")
	require.NoError(t, repo.CreateActive(ctx, second))

	// Two resolved rows for the same pair coexist (NULL keys never collide)
	second.Status = entities.AlertStatusResolved
	second.ResolvedAt = &now
	second.DedupKey = nil
	require.NoError(t, repo.Save(ctx, second))

	third := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-1")
	require.NoError(t, repo.CreateActive(ctx, third))
}

func TestAlertInstanceRepository_GetActiveByDedupKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertInstanceRepository(db)
	ctx := t.Context()

	alert := newActiveAlert(nil, "capacity.full", "tenant-a", "class", "class-1")
	require.NoError(t, repo.CreateActive(ctx, alert))

	got, err := repo.GetActiveByDedupKey(ctx, "capacity.full|class-1")
	require.NoError(t, err)
	assert.Equal(t, alert.ID, got.ID)

	_, err = repo.GetActiveByDedupKey(ctx, "capacity.full|class-2")
	require.ErrorIs(t, err, ErrAlertNotFound)
}

func TestAlertInstanceRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertInstanceRepository(db)
	ctx := t.Context()

	a1 := newActiveAlert(nil, "capacity.full", "tenant-a", "class", "class-1")
	a1.Severity = "critical"
	a1.GeneratedAt = time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.CreateActive(ctx, a1))

	a2 := newActiveAlert(nil, "capacity.near_capacity", "tenant-a", "class", "class-2")
	a2.GeneratedAt = time.Now().Add(-1 * time.Hour)
	require.NoError(t, repo.CreateActive(ctx, a2))

	a3 := newActiveAlert(nil, "capacity.full", "tenant-b", "class", "class-3")
	a3.GeneratedAt = time.Now()
	require.NoError(t, repo.CreateActive(ctx, a3))

	// Acknowledged alerts still count as active for listing
	now := time.Now()
	a2.Status = entities.AlertStatusAcknowledged
	a2.AcknowledgedAt = &now
	require.NoError(t, repo.Save(ctx, a2))

	// Resolved alerts drop out
	a1Resolved := newActiveAlert(nil, "capacity.over_capacity", "tenant-a", "class", "class-9")
	require.NoError(t, repo.CreateActive(ctx, a1Resolved))
	a1Resolved.Status = entities.AlertStatusResolved
	a1Resolved.ResolvedAt = &now
	a1Resolved.DedupKey = nil
	require.NoError(t, repo.Save(ctx, a1Resolved))

	t.Run("filter by tenant", func(t *testing.T) {
		alerts, err := repo.ListActive(ctx, AlertInstanceFilter{TenantID: "tenant-a"})
		require.NoError(t, err)
		assert.Len(t, alerts, 2)
	})

	t.Run("newest first", func(t *testing.T) {
		alerts, err := repo.ListActive(ctx, AlertInstanceFilter{TenantID: "tenant-a"})
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		assert.True(t, alerts[0].GeneratedAt.After(alerts[1].GeneratedAt))
	})

	t.Run("filter by severity", func(t *testing.T) {
		alerts, err := repo.ListActive(ctx, AlertInstanceFilter{TenantID: "tenant-a", Severity: "critical"})
		require.NoError(t, err)
		assert.Len(t, alerts, 1)
		assert.Equal(t, "class-1", alerts[0].EntityID)
	})

	t.Run("filter by rule code", func(t *testing.T) {
		alerts, err := repo.ListActive(ctx, AlertInstanceFilter{RuleCode: "capacity.full"})
		require.NoError(t, err)
		assert.Len(t, alerts, 2)
	})

	t.Run("limit", func(t *testing.T) {
		alerts, err := repo.ListActive(ctx, AlertInstanceFilter{TenantID: "tenant-a", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, alerts, 1)
	})
}

func TestAlertInstanceRepository_CountActiveForRule(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertInstanceRepository(db)
	ctx := t.Context()

	ruleID := uint(3)
	a1 := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-1")
	require.NoError(t, repo.CreateActive(ctx, a1))
	a2 := newActiveAlert(&ruleID, "student.high_absences", "tenant-a", "student", "stu-2")
	require.NoError(t, repo.CreateActive(ctx, a2))

	count, err := repo.CountActiveForRule(ctx, ruleID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	now := time.Now()
	a1.Status = entities.AlertStatusResolved
	a1.ResolvedAt = &now
	a1.DedupKey = nil
	require.NoError(t, repo.Save(ctx, a1))

	count, err = repo.CountActiveForRule(ctx, ruleID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
