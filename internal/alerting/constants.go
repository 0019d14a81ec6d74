// Package alerting implements the rule-driven alert engine core: typed
// condition evaluation, alert instance lifecycle, and the event bus that
// feeds realtime triggers.
package alerting

// Entity types define the categories of things rules can monitor.
const (
	EntityTypeClass   = "class"
	EntityTypeStudent = "student"
	EntityTypeTeacher = "teacher"
)

// ValidEntityType reports whether the given entity type is known.
func ValidEntityType(entityType string) bool {
	switch entityType {
	case EntityTypeClass, EntityTypeStudent, EntityTypeTeacher:
		return true
	}
	return false
}

// Condition types form a closed set; there is no runtime-extensible rule DSL.
const (
	ConditionThresholdCount   = "threshold_count"
	ConditionThresholdPercent = "threshold_percentage"
	ConditionTimeSinceEvent   = "time_since_event"
	ConditionCustom           = "custom"
)

// Comparison operators for threshold conditions.
const (
	OperatorGreaterOrEqual = ">="
	OperatorGreaterThan    = ">"
	OperatorEqual          = "=="
	OperatorLessThan       = "<"
	OperatorLessOrEqual    = "<="
)

// Severities, ordered from least to most severe.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
	SeverityUrgent   = "urgent"
)

// severityRank orders severities for filtering and display.
var severityRank = map[string]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityCritical: 2,
	SeverityUrgent:   3,
}

// SeverityRank returns the ordering rank of a severity, or -1 if unknown.
func SeverityRank(severity string) int {
	if rank, ok := severityRank[severity]; ok {
		return rank
	}
	return -1
}

// ValidSeverity reports whether the given severity is a known level.
func ValidSeverity(severity string) bool {
	_, ok := severityRank[severity]
	return ok
}

// Check frequencies drive the scheduler. Realtime rules are evaluated on
// events from the bus, never by the periodic loop.
const (
	FrequencyRealtime = "realtime"
	FrequencyInterval = "interval"
	FrequencyDaily    = "daily"
)

// ValidFrequency reports whether the given check frequency is known.
func ValidFrequency(frequency string) bool {
	switch frequency {
	case FrequencyRealtime, FrequencyInterval, FrequencyDaily:
		return true
	}
	return false
}

// Notification channel identifiers.
const (
	ChannelLog  = "log"
	ChannelPush = "push"
	ChannelMQTT = "mqtt"
)

// Staff roles alerts can target.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// Rule codes of engine-generated capacity alerts. These never map to a row
// in alert_rules; the capacity subsystem is always on.
const (
	RuleCodeNearCapacity = "capacity.near_capacity"
	RuleCodeFull         = "capacity.full"
	RuleCodeOverCapacity = "capacity.over_capacity"
)

// Snapshot field names shared between the evaluator and providers.
const (
	FieldCurrentEnrollments = "current_enrollments"
	FieldMaxCapacity        = "max_capacity"
	FieldAbsences30d        = "absences_30d"
	FieldPresentDays        = "present_days"
	FieldTrackedDays        = "tracked_days"
	FieldLastAttendanceAt   = "last_attendance_at"
	FieldEnrolledAt         = "enrolled_at"
	FieldName               = "name"
)
