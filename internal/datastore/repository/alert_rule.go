package repository

import (
	"context"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// AlertRuleRepository handles alert rule CRUD.
type AlertRuleRepository interface {
	ListRules(ctx context.Context, filter AlertRuleFilter) ([]entities.AlertRule, error)
	GetRule(ctx context.Context, id uint) (*entities.AlertRule, error)
	GetRuleByCode(ctx context.Context, tenantID, code string) (*entities.AlertRule, error)
	CreateRule(ctx context.Context, rule *entities.AlertRule) error
	UpdateRule(ctx context.Context, rule *entities.AlertRule) error
	DeleteRule(ctx context.Context, id uint) error
	ToggleRule(ctx context.Context, id uint, active bool) error

	// GetActiveRules returns the active rules the scheduler evaluates.
	GetActiveRules(ctx context.Context, tenantID string) ([]entities.AlertRule, error)
	CountRulesByCode(ctx context.Context, tenantID, code string) (int64, error)
}

// AlertRuleFilter controls rule listing queries.
type AlertRuleFilter struct {
	TenantID   string
	EntityType string
	IsActive   *bool
	BuiltIn    *bool
}
