package repository

import (
	"context"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// AlertInstanceRepository persists alert instances. Creation is guarded by
// the dedup unique index; everything above it goes through the lifecycle
// manager, which is the single writer.
type AlertInstanceRepository interface {
	// CreateActive inserts a new active instance. Returns
	// ErrDuplicateActiveAlert when an active instance already exists for
	// the same (rule, entity) pair.
	CreateActive(ctx context.Context, alert *entities.AlertInstance) error

	GetByID(ctx context.Context, id string) (*entities.AlertInstance, error)
	GetActiveByDedupKey(ctx context.Context, dedupKey string) (*entities.AlertInstance, error)

	// Save persists lifecycle mutations (acknowledge, resolve, data refresh).
	Save(ctx context.Context, alert *entities.AlertInstance) error

	ListActive(ctx context.Context, filter AlertInstanceFilter) ([]entities.AlertInstance, error)
	CountActiveForRule(ctx context.Context, ruleID uint) (int64, error)
}

// AlertInstanceFilter controls active alert listing.
type AlertInstanceFilter struct {
	TenantID   string
	SchoolID   string
	EntityType string
	Severity   string
	RuleCode   string
	Limit      int
}
