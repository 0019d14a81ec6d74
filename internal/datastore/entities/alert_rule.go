package entities

import "time"

// AlertRule defines a declarative alerting rule evaluated against entity
// snapshots. Rules are tenant-scoped; Code is the human-stable short name
// unique within a tenant.
type AlertRule struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	TenantID          string     `gorm:"size:64;not null;uniqueIndex:idx_alert_rules_tenant_code,priority:1" json:"tenant_id"`
	Code              string     `gorm:"size:100;not null;uniqueIndex:idx_alert_rules_tenant_code,priority:2" json:"code"`
	Name              string     `gorm:"size:255;not null" json:"name"`
	Description       string     `gorm:"size:1000;default:''" json:"description"`
	EntityType        string     `gorm:"size:50;not null;index" json:"entity_type"`
	ConditionType     string     `gorm:"size:50;not null" json:"condition_type"`
	ConditionConfig   string     `gorm:"type:text;default:''" json:"condition_config"`
	Severity          string     `gorm:"size:20;not null" json:"severity"`
	MessageTemplate   string     `gorm:"size:2000;default:''" json:"message_template"`
	Channels          StringList `gorm:"type:text" json:"channels"`
	TargetRoles       StringList `gorm:"type:text" json:"target_roles"`
	ScopeSchools      StringList `gorm:"type:text" json:"scope_schools"`
	CheckFrequency    string     `gorm:"size:20;not null;default:'interval'" json:"check_frequency"`
	CheckEveryMinutes int        `gorm:"not null;default:60" json:"check_every_minutes"`
	BuiltIn           bool       `gorm:"not null;default:false" json:"built_in"`
	IsActive          bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for GORM.
func (AlertRule) TableName() string {
	return "alert_rules"
}
