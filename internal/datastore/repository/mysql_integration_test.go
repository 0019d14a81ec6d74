//go:build integration

package repository

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gorm_mysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	"github.com/edusphere/alertengine/internal/datastore/entities"
	"github.com/edusphere/alertengine/internal/testutil/containers"
)

var (
	mysqlContainer *containers.MySQLContainer
	mysqlDB        *gorm.DB
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	mysqlContainer, err = containers.NewMySQLContainer(ctx)
	if err != nil {
		log.Fatalf("failed to start MySQL container: %v", err)
	}

	mysqlDB, err = gorm.Open(gorm_mysql.Open(mysqlContainer.DSN()), &gorm.Config{
		Logger:         gorm_logger.Default.LogMode(gorm_logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		_ = mysqlContainer.Terminate(ctx)
		log.Fatalf("failed to open gorm connection: %v", err)
	}
	if err := mysqlDB.AutoMigrate(
		&entities.AlertRule{},
		&entities.AlertInstance{},
		&entities.Class{},
		&entities.Enrollment{},
		&entities.Student{},
	); err != nil {
		_ = mysqlContainer.Terminate(ctx)
		log.Fatalf("failed to migrate: %v", err)
	}

	code := m.Run()
	_ = mysqlContainer.Terminate(ctx)
	os.Exit(code)
}

func resetMySQL(t *testing.T) {
	t.Helper()
	require.NoError(t, mysqlContainer.Reset(t.Context(),
		"alert_rules", "alert_instances", "classes", "class_enrollments", "students"))
}

func TestMySQLAlertInstance_DedupUnderConcurrency(t *testing.T) {
	resetMySQL(t)
	repo := NewAlertInstanceRepository(mysqlDB)
	ctx := t.Context()

	ruleID := uint(1)
	const writers = 10

	var wg sync.WaitGroup
	results := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alert := &entities.AlertInstance{
				ID:          uuid.NewString(),
				RuleID:      &ruleID,
				RuleCode:    "student.high_absences",
				EntityType:  "student",
				EntityID:    "stu-1",
				TenantID:    "tenant-a",
				Severity:    "warning",
				Status:      entities.AlertStatusActive,
				GeneratedAt: time.Now(),
			}
			key := entities.ActiveDedupKey(alert.RuleRef(), alert.EntityID)
			alert.DedupKey = &key
			results <- repo.CreateActive(ctx, alert)
		}()
	}
	wg.Wait()
	close(results)

	var created, duplicates int
	for err := range results {
		switch {
		case err == nil:
			created++
		case assert.ErrorIs(t, err, ErrDuplicateActiveAlert):
			duplicates++
		}
	}
	assert.Equal(t, 1, created, "exactly one writer wins")
	assert.Equal(t, writers-1, duplicates)

	alerts, err := repo.ListActive(ctx, AlertInstanceFilter{TenantID: "tenant-a"})
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestMySQLAlertRule_TenantCodeUniqueness(t *testing.T) {
	resetMySQL(t)
	repo := NewAlertRuleRepository(mysqlDB)
	ctx := t.Context()

	rule := &entities.AlertRule{
		TenantID:        "tenant-a",
		Code:            "student.high_absences",
		Name:            "High absences",
		EntityType:      "student",
		ConditionType:   "threshold_count",
		ConditionConfig: `{"field":"absences_30d","operator":">=","value":5}`,
		Severity:        "warning",
		CheckFrequency:  "daily",
		IsActive:        true,
	}
	require.NoError(t, repo.CreateRule(ctx, rule))

	dup := *rule
	dup.ID = 0
	require.Error(t, repo.CreateRule(ctx, &dup))

	other := *rule
	other.ID = 0
	other.TenantID = "tenant-b"
	require.NoError(t, repo.CreateRule(ctx, &other))
}

func TestMySQLAlertInstance_LifecycleRoundTrip(t *testing.T) {
	resetMySQL(t)
	repo := NewAlertInstanceRepository(mysqlDB)
	ctx := t.Context()

	alert := &entities.AlertInstance{
		ID:          uuid.NewString(),
		RuleCode:    "capacity.full",
		EntityType:  "class",
		EntityID:    "class-1",
		TenantID:    "tenant-a",
		Severity:    "critical",
		Status:      entities.AlertStatusActive,
		GeneratedAt: time.Now(),
	}
	key := entities.ActiveDedupKey(alert.RuleRef(), alert.EntityID)
	alert.DedupKey = &key
	require.NoError(t, repo.CreateActive(ctx, alert))

	now := time.Now()
	alert.Status = entities.AlertStatusResolved
	alert.ResolvedAt = &now
	alert.DedupKey = nil
	require.NoError(t, repo.Save(ctx, alert))

	got, err := repo.GetByID(ctx, alert.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusResolved, got.Status)
	assert.Nil(t, got.DedupKey)

	// Slot is free again
	fresh := &entities.AlertInstance{
		ID:          uuid.NewString(),
		RuleCode:    "capacity.full",
		EntityType:  "class",
		EntityID:    "class-1",
		TenantID:    "tenant-a",
		Severity:    "critical",
		Status:      entities.AlertStatusActive,
		GeneratedAt: time.Now(),
	}
	freshKey := entities.ActiveDedupKey(fresh.RuleRef(), fresh.EntityID)
	fresh.DedupKey = &freshKey
	require.NoError(t, repo.CreateActive(ctx, fresh))
}
