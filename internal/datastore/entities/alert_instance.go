package entities

import (
	"strconv"
	"time"
)

// Alert instance lifecycle statuses. Transitions are strictly forward:
// active → acknowledged → resolved. A resolved alert never reopens; a new
// instance is generated instead.
const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// AlertInstance is a concrete, lifecycle-tracked occurrence of a rule match
// for one entity. DedupKey is "<ruleRef>|<entityID>" while the instance is
// active and nil afterwards; its unique index is what enforces at most one
// active instance per (rule, entity) pair at the storage layer.
type AlertInstance struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	RuleID          *uint      `gorm:"index" json:"rule_id"`
	RuleCode        string     `gorm:"size:100;not null;index" json:"rule_code"`
	EntityType      string     `gorm:"size:50;not null;index" json:"entity_type"`
	EntityID        string     `gorm:"size:64;not null;index" json:"entity_id"`
	TenantID        string     `gorm:"size:64;not null;index" json:"tenant_id"`
	SchoolID        string     `gorm:"size:64;default:'';index" json:"school_id"`
	Severity        string     `gorm:"size:20;not null;index" json:"severity"`
	Message         string     `gorm:"size:2000;default:''" json:"message"`
	Data            string     `gorm:"type:text;default:''" json:"data"`
	Status          string     `gorm:"size:20;not null;index" json:"status"`
	DedupKey        *string    `gorm:"size:255;uniqueIndex" json:"-"`
	GeneratedAt     time.Time  `gorm:"not null;index" json:"generated_at"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at"`
	AcknowledgedBy  string     `gorm:"size:64;default:''" json:"acknowledged_by"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ResolutionNotes string     `gorm:"size:2000;default:''" json:"resolution_notes"`
}

// TableName returns the table name for GORM.
func (AlertInstance) TableName() string {
	return "alert_instances"
}

// RuleRef returns the stable reference used for deduplication: the rule ID
// for user rules, the rule code for engine-generated alerts (capacity).
func (a *AlertInstance) RuleRef() string {
	if a.RuleID != nil {
		// Prefix keeps numeric IDs from colliding with rule codes.
		return "rule:" + strconv.FormatUint(uint64(*a.RuleID), 10)
	}
	return a.RuleCode
}

// ActiveDedupKey builds the dedup key for an active instance of the given
// rule reference and entity.
func ActiveDedupKey(ruleRef, entityID string) string {
	return ruleRef + "|" + entityID
}
