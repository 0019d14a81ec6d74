package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// alertInstanceRepository implements AlertInstanceRepository.
type alertInstanceRepository struct {
	db *gorm.DB
}

// NewAlertInstanceRepository creates a new AlertInstanceRepository.
func NewAlertInstanceRepository(db *gorm.DB) AlertInstanceRepository {
	return &alertInstanceRepository{db: db}
}

// CreateActive inserts a new active alert instance. The dedup unique index
// turns a concurrent double-insert into gorm.ErrDuplicatedKey, which is
// surfaced as ErrDuplicateActiveAlert for the lifecycle manager to resolve
// into the already-existing row.
func (r *alertInstanceRepository) CreateActive(ctx context.Context, alert *entities.AlertInstance) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateActiveAlert
		}
		return fmt.Errorf("failed to create alert instance: %w", err)
	}
	return nil
}

// GetByID returns an alert instance by ID.
func (r *alertInstanceRepository) GetByID(ctx context.Context, id string) (*entities.AlertInstance, error) {
	var alert entities.AlertInstance
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert instance %s: %w", id, err)
	}
	return &alert, nil
}

// GetActiveByDedupKey returns the live instance carrying the given dedup key.
func (r *alertInstanceRepository) GetActiveByDedupKey(ctx context.Context, dedupKey string) (*entities.AlertInstance, error) {
	var alert entities.AlertInstance
	if err := r.db.WithContext(ctx).Where("dedup_key = ?", dedupKey).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get alert by dedup key: %w", err)
	}
	return &alert, nil
}

// Save persists lifecycle mutations on an existing instance.
func (r *alertInstanceRepository) Save(ctx context.Context, alert *entities.AlertInstance) error {
	if err := r.db.WithContext(ctx).Save(alert).Error; err != nil {
		return fmt.Errorf("failed to save alert instance %s: %w", alert.ID, err)
	}
	return nil
}

// ListActive returns non-resolved alert instances matching the filter,
// newest first. "Active" here covers both active and acknowledged states,
// which is what the dashboards show.
func (r *alertInstanceRepository) ListActive(ctx context.Context, filter AlertInstanceFilter) ([]entities.AlertInstance, error) {
	var alerts []entities.AlertInstance
	query := r.db.WithContext(ctx).
		Where("status IN ?", []string{entities.AlertStatusActive, entities.AlertStatusAcknowledged})

	if filter.TenantID != "" {
		query = query.Where("tenant_id = ?", filter.TenantID)
	}
	if filter.SchoolID != "" {
		query = query.Where("school_id = ?", filter.SchoolID)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.RuleCode != "" {
		query = query.Where("rule_code = ?", filter.RuleCode)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Order("generated_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	return alerts, nil
}

// CountActiveForRule counts non-resolved instances referencing a user rule.
// Used to block rule deletion while alerts still point at it.
func (r *alertInstanceRepository) CountActiveForRule(ctx context.Context, ruleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.AlertInstance{}).
		Where("rule_id = ? AND status IN ?", ruleID,
			[]string{entities.AlertStatusActive, entities.AlertStatusAcknowledged}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count active alerts for rule %d: %w", ruleID, err)
	}
	return count, nil
}
