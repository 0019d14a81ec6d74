package alerting

import "sort"

// Schema describes the full catalog of entity types, condition types, and
// enumerations available for rule building.
type Schema struct {
	EntityTypes    []EntityTypeSchema    `json:"entity_types"`
	ConditionTypes []ConditionTypeSchema `json:"condition_types"`
	Operators      []OperatorSchema      `json:"operators"`
	Severities     []string              `json:"severities"`
	Frequencies    []string              `json:"frequencies"`
	Channels       []string              `json:"channels"`
}

// EntityTypeSchema describes an entity type and the snapshot fields its
// conditions can read.
type EntityTypeSchema struct {
	Name   string        `json:"name"`
	Label  string        `json:"label"`
	Fields []FieldSchema `json:"fields"`
}

// FieldSchema describes a snapshot field available for condition building.
type FieldSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Type  string `json:"type"` // "number" or "timestamp"
}

// ConditionTypeSchema describes a condition type and its config parameters.
type ConditionTypeSchema struct {
	Name   string   `json:"name"`
	Label  string   `json:"label"`
	Params []string `json:"params"`
	Checks []string `json:"checks,omitempty"`
}

// OperatorSchema describes a comparison operator for the UI.
type OperatorSchema struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// GetSchema returns the full rule-building schema for the UI.
func GetSchema() Schema {
	return Schema{
		EntityTypes: []EntityTypeSchema{
			{
				Name:  EntityTypeClass,
				Label: "Class",
				Fields: []FieldSchema{
					{Name: FieldCurrentEnrollments, Label: "Current Enrollments", Type: "number"},
					{Name: FieldMaxCapacity, Label: "Maximum Capacity", Type: "number"},
				},
			},
			{
				Name:  EntityTypeStudent,
				Label: "Student",
				Fields: []FieldSchema{
					{Name: FieldAbsences30d, Label: "Absences (30 days)", Type: "number"},
					{Name: FieldPresentDays, Label: "Present Days", Type: "number"},
					{Name: FieldTrackedDays, Label: "Tracked Days", Type: "number"},
					{Name: FieldLastAttendanceAt, Label: "Last Attendance", Type: "timestamp"},
					{Name: FieldEnrolledAt, Label: "Enrolled At", Type: "timestamp"},
				},
			},
		},
		ConditionTypes: []ConditionTypeSchema{
			{Name: ConditionThresholdCount, Label: "Count Threshold", Params: []string{"field", "operator", "value"}},
			{Name: ConditionThresholdPercent, Label: "Percentage Threshold", Params: []string{"numerator_field", "denominator_field", "operator", "value"}},
			{Name: ConditionTimeSinceEvent, Label: "Time Since Event", Params: []string{"timestamp_field", "since"}},
			{Name: ConditionCustom, Label: "Built-in Check", Params: []string{"check"}, Checks: CustomCheckNames()},
		},
		Operators: []OperatorSchema{
			{Name: OperatorGreaterOrEqual, Label: "greater or equal"},
			{Name: OperatorGreaterThan, Label: "greater than"},
			{Name: OperatorEqual, Label: "equal"},
			{Name: OperatorLessThan, Label: "less than"},
			{Name: OperatorLessOrEqual, Label: "less or equal"},
		},
		Severities:  []string{SeverityInfo, SeverityWarning, SeverityCritical, SeverityUrgent},
		Frequencies: []string{FrequencyRealtime, FrequencyInterval, FrequencyDaily},
		Channels:    []string{ChannelLog, ChannelPush, ChannelMQTT},
	}
}

// CustomCheckNames returns the sorted names of the built-in custom checks.
func CustomCheckNames() []string {
	names := make([]string, 0, len(customChecks))
	for name := range customChecks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
