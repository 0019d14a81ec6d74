package alerting

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/datastore/entities"
	"github.com/edusphere/alertengine/internal/datastore/repository"
)

// DefaultRules returns the built-in alert rules seeded for a tenant on first
// activation. Admins can toggle or retune them but not delete them.
func DefaultRules(tenantID string) []entities.AlertRule {
	return []entities.AlertRule{
		{
			TenantID:          tenantID,
			Code:              "student.high_absences",
			Name:              "High absences",
			Description:       "Flags students with 5 or more absences in the last 30 days",
			EntityType:        EntityTypeStudent,
			ConditionType:     ConditionThresholdCount,
			ConditionConfig:   `{"field":"absences_30d","operator":">=","value":5}`,
			Severity:          SeverityWarning,
			MessageTemplate:   "{{name}} has {{value}} absences in the last 30 days",
			Channels:          entities.StringList{ChannelLog, ChannelPush},
			TargetRoles:       entities.StringList{RoleAdmin, RoleTeacher},
			CheckFrequency:    FrequencyDaily,
			CheckEveryMinutes: 0,
			BuiltIn:           true,
			IsActive:          true,
		},
		{
			TenantID:          tenantID,
			Code:              "student.low_attendance",
			Name:              "Low attendance rate",
			Description:       "Flags students whose attendance rate drops below 80%",
			EntityType:        EntityTypeStudent,
			ConditionType:     ConditionThresholdPercent,
			ConditionConfig:   `{"numerator_field":"present_days","denominator_field":"tracked_days","operator":"<","value":80}`,
			Severity:          SeverityWarning,
			MessageTemplate:   "{{name}} attendance rate is {{percentage}}%",
			Channels:          entities.StringList{ChannelLog, ChannelPush},
			TargetRoles:       entities.StringList{RoleAdmin},
			CheckFrequency:    FrequencyDaily,
			CheckEveryMinutes: 0,
			BuiltIn:           true,
			IsActive:          true,
		},
		{
			TenantID:          tenantID,
			Code:              "student.missing_attendance",
			Name:              "No recent attendance record",
			Description:       "Flags students with no attendance recorded for 7 days",
			EntityType:        EntityTypeStudent,
			ConditionType:     ConditionTimeSinceEvent,
			ConditionConfig:   `{"timestamp_field":"last_attendance_at","since":"168h"}`,
			Severity:          SeverityInfo,
			MessageTemplate:   "{{name}} has no attendance record for {{hours_since}} hours",
			Channels:          entities.StringList{ChannelLog},
			TargetRoles:       entities.StringList{RoleAdmin},
			CheckFrequency:    FrequencyInterval,
			CheckEveryMinutes: 360,
			BuiltIn:           true,
			IsActive:          true,
		},
		{
			TenantID:          tenantID,
			Code:              "class.over_capacity_check",
			Name:              "Class over enrollment limit",
			Description:       "Flags classes whose active enrollments exceed their capacity",
			EntityType:        EntityTypeClass,
			ConditionType:     ConditionCustom,
			ConditionConfig:   `{"check":"class_over_capacity"}`,
			Severity:          SeverityCritical,
			MessageTemplate:   "{{name}} is over capacity ({{current_enrollments}}/{{max_capacity}})",
			Channels:          entities.StringList{ChannelLog, ChannelPush},
			TargetRoles:       entities.StringList{RoleAdmin},
			CheckFrequency:    FrequencyRealtime,
			CheckEveryMinutes: 0,
			BuiltIn:           true,
			IsActive:          true,
		},
	}
}

// SeedDefaultRules ensures all built-in rules exist for a tenant. It checks
// by code so partial seeds from previous runs self-heal on restart.
func SeedDefaultRules(ctx context.Context, rules repository.AlertRuleRepository, tenantID string, log *zap.Logger) error {
	existing, err := rules.ListRules(ctx, repository.AlertRuleFilter{TenantID: tenantID})
	if err != nil {
		return fmt.Errorf("failed to list existing rules: %w", err)
	}

	existingCodes := make(map[string]struct{}, len(existing))
	for i := range existing {
		existingCodes[existing[i].Code] = struct{}{}
	}

	defaults := DefaultRules(tenantID)
	var created int
	for i := range defaults {
		if _, exists := existingCodes[defaults[i].Code]; exists {
			continue
		}
		if err := rules.CreateRule(ctx, &defaults[i]); err != nil {
			return fmt.Errorf("failed to seed rule %q: %w", defaults[i].Code, err)
		}
		created++
	}
	if created > 0 {
		log.Info("seeded default alert rules",
			zap.String("tenant_id", tenantID),
			zap.Int("created", created))
	}
	return nil
}
