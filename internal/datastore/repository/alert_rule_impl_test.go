package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// setupTestDB creates an in-memory SQLite database for repository tests.
// Uses shared-cache mode with a single connection so all operations see the
// same in-memory database. TranslateError matches the production open path;
// the dedup tests depend on it.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open in-memory database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "failed to get sql.DB")
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&entities.AlertRule{},
		&entities.AlertInstance{},
		&entities.Class{},
		&entities.Enrollment{},
		&entities.Student{},
	)
	require.NoError(t, err, "failed to migrate tables")
	return db
}

// createTestRule creates a user rule for one tenant.
func createTestRule(t *testing.T, repo AlertRuleRepository, tenantID, code string) *entities.AlertRule {
	t.Helper()
	rule := &entities.AlertRule{
		TenantID:          tenantID,
		Code:              code,
		Name:              "Test rule " + code,
		Description:       "test rule",
		EntityType:        "student",
		ConditionType:     "threshold_count",
		ConditionConfig:   `{"field":"absences_30d","operator":">=","value":5}`,
		Severity:          "warning",
		Channels:          entities.StringList{"log"},
		CheckFrequency:    "daily",
		CheckEveryMinutes: 0,
		IsActive:          true,
	}
	err := repo.CreateRule(t.Context(), rule)
	require.NoError(t, err)
	return rule
}

func TestAlertRuleRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	rule := &entities.AlertRule{
		TenantID:          "tenant-a",
		Code:              "student.high_absences",
		Name:              "High absences",
		Description:       "Flags students with many absences",
		EntityType:        "student",
		ConditionType:     "threshold_count",
		ConditionConfig:   `{"field":"absences_30d","operator":">=","value":5}`,
		Severity:          "warning",
		MessageTemplate:   "{{name}} has {{value}} absences",
		Channels:          entities.StringList{"log", "push"},
		TargetRoles:       entities.StringList{"admin", "teacher"},
		CheckFrequency:    "daily",
		CheckEveryMinutes: 0,
		BuiltIn:           true,
		IsActive:          true,
	}

	err := repo.CreateRule(ctx, rule)
	require.NoError(t, err)
	assert.NotZero(t, rule.ID)

	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Equal(t, "student.high_absences", got.Code)
	assert.Equal(t, "High absences", got.Name)
	assert.Equal(t, "threshold_count", got.ConditionType)
	assert.Equal(t, "warning", got.Severity)
	assert.Equal(t, entities.StringList{"log", "push"}, got.Channels)
	assert.Equal(t, entities.StringList{"admin", "teacher"}, got.TargetRoles)
	assert.True(t, got.BuiltIn)
	assert.True(t, got.IsActive)
}

func TestAlertRuleRepository_GetRule_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)

	_, err := repo.GetRule(t.Context(), 9999)
	require.ErrorIs(t, err, ErrAlertRuleNotFound)
}

func TestAlertRuleRepository_GetRuleByCode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	createTestRule(t, repo, "tenant-a", "student.low_attendance")
	createTestRule(t, repo, "tenant-b", "student.low_attendance")

	got, err := repo.GetRuleByCode(ctx, "tenant-a", "student.low_attendance")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got.TenantID)

	_, err = repo.GetRuleByCode(ctx, "tenant-c", "student.low_attendance")
	require.ErrorIs(t, err, ErrAlertRuleNotFound)
}

func TestAlertRuleRepository_CreateRule_DuplicateCodeInTenant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	createTestRule(t, repo, "tenant-a", "student.high_absences")

	dup := &entities.AlertRule{
		TenantID:        "tenant-a",
		Code:            "student.high_absences",
		Name:            "Duplicate",
		EntityType:      "student",
		ConditionType:   "threshold_count",
		ConditionConfig: `{"field":"absences_30d","operator":">=","value":3}`,
		Severity:        "info",
		CheckFrequency:  "daily",
	}
	err := repo.CreateRule(ctx, dup)
	require.Error(t, err, "same code in same tenant must be rejected")

	// Same code in a different tenant is fine
	createTestRule(t, repo, "tenant-b", "student.high_absences")
}

func TestAlertRuleRepository_ListRules(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	r1 := createTestRule(t, repo, "tenant-a", "student.high_absences")
	createTestRule(t, repo, "tenant-a", "class.crowding")
	createTestRule(t, repo, "tenant-b", "student.high_absences")
	require.NoError(t, repo.ToggleRule(ctx, r1.ID, false))

	t.Run("filter by tenant", func(t *testing.T) {
		rules, err := repo.ListRules(ctx, AlertRuleFilter{TenantID: "tenant-a"})
		require.NoError(t, err)
		assert.Len(t, rules, 2)
	})

	t.Run("filter by active", func(t *testing.T) {
		active := true
		rules, err := repo.ListRules(ctx, AlertRuleFilter{TenantID: "tenant-a", IsActive: &active})
		require.NoError(t, err)
		assert.Len(t, rules, 1)
		assert.Equal(t, "class.crowding", rules[0].Code)
	})

	t.Run("no filter returns all", func(t *testing.T) {
		rules, err := repo.ListRules(ctx, AlertRuleFilter{})
		require.NoError(t, err)
		assert.Len(t, rules, 3)
	})
}

func TestAlertRuleRepository_UpdateRule(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	rule := createTestRule(t, repo, "tenant-a", "student.high_absences")

	rule.Name = "Updated name"
	rule.ConditionConfig = `{"field":"absences_30d","operator":">=","value":8}`
	rule.Severity = "critical"
	require.NoError(t, repo.UpdateRule(ctx, rule))

	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Updated name", got.Name)
	assert.Equal(t, "critical", got.Severity)
	assert.Contains(t, got.ConditionConfig, `"value":8`)
}

func TestAlertRuleRepository_UpdateRule_MissingID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)

	err := repo.UpdateRule(t.Context(), &entities.AlertRule{Name: "No ID"})
	require.Error(t, err)
}

func TestAlertRuleRepository_DeleteRule(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	rule := createTestRule(t, repo, "tenant-a", "student.high_absences")

	require.NoError(t, repo.DeleteRule(ctx, rule.ID))

	_, err := repo.GetRule(ctx, rule.ID)
	require.ErrorIs(t, err, ErrAlertRuleNotFound)

	err = repo.DeleteRule(ctx, rule.ID)
	require.ErrorIs(t, err, ErrAlertRuleNotFound)
}

func TestAlertRuleRepository_ToggleRule(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	rule := createTestRule(t, repo, "tenant-a", "student.high_absences")
	assert.True(t, rule.IsActive)

	require.NoError(t, repo.ToggleRule(ctx, rule.ID, false))
	got, err := repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, repo.ToggleRule(ctx, rule.ID, true))
	got, err = repo.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	require.ErrorIs(t, repo.ToggleRule(ctx, 9999, true), ErrAlertRuleNotFound)
}

func TestAlertRuleRepository_GetActiveRules(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	r1 := createTestRule(t, repo, "tenant-a", "rule.one")
	createTestRule(t, repo, "tenant-a", "rule.two")
	createTestRule(t, repo, "tenant-b", "rule.three")
	require.NoError(t, repo.ToggleRule(ctx, r1.ID, false))

	rules, err := repo.GetActiveRules(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Len(t, rules, 1)
	assert.Equal(t, "rule.two", rules[0].Code)
}

func TestAlertRuleRepository_CountRulesByCode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAlertRuleRepository(db)
	ctx := t.Context()

	createTestRule(t, repo, "tenant-a", "student.high_absences")

	count, err := repo.CountRulesByCode(ctx, "tenant-a", "student.high_absences")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.CountRulesByCode(ctx, "tenant-a", "nonexistent")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
