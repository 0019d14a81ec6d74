package alerting

import (
	"encoding/json"
	"time"

	"github.com/edusphere/alertengine/internal/conf"
)

// Snapshot is a point-in-time read of the entity fields a condition needs.
type Snapshot map[string]any

// MatchResult carries the outcome of a condition evaluation plus any metrics
// computed along the way (e.g. an occupancy percentage) for message
// rendering and alert data.
type MatchResult struct {
	Matched bool
	Metrics map[string]float64
}

// NoMatch is the zero result.
var NoMatch = MatchResult{}

// ConditionConfig is the tagged union of typed condition parameters, keyed
// by the rule's condition type. Configs are validated at rule-creation time
// so evaluation-time surprises are limited to missing snapshot data.
type ConditionConfig interface {
	// Validate returns a *ConfigurationError when the config is unusable.
	Validate() error
	// RequiredFields lists the snapshot fields evaluation reads, so
	// providers can fetch minimally.
	RequiredFields() []string
	// Evaluate is pure: identical inputs always produce identical output.
	Evaluate(snap Snapshot, now time.Time) MatchResult
}

// ParseConditionConfig decodes and validates the JSON condition config for
// the given condition type. Unknown types and malformed payloads return a
// *ConfigurationError.
func ParseConditionConfig(conditionType, raw string) (ConditionConfig, error) {
	var cfg ConditionConfig
	switch conditionType {
	case ConditionThresholdCount:
		cfg = &ThresholdCountConfig{}
	case ConditionThresholdPercent:
		cfg = &ThresholdPercentConfig{}
	case ConditionTimeSinceEvent:
		cfg = &TimeSinceEventConfig{}
	case ConditionCustom:
		cfg = &CustomConfig{}
	default:
		return nil, &ConfigurationError{ConditionType: conditionType, Reason: "unknown condition type"}
	}

	if err := json.Unmarshal([]byte(raw), cfg); err != nil {
		return nil, &ConfigurationError{ConditionType: conditionType, Reason: "malformed JSON: " + err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ThresholdCountConfig matches when a raw numeric snapshot field compares
// true against a fixed value.
type ThresholdCountConfig struct {
	Field    string  `json:"field"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

func (c *ThresholdCountConfig) Validate() error {
	if c.Field == "" {
		return &ConfigurationError{ConditionType: ConditionThresholdCount, Field: "field", Reason: "is required"}
	}
	if !validOperator(c.Operator) {
		return &ConfigurationError{ConditionType: ConditionThresholdCount, Field: "operator", Reason: "must be one of >=, >, ==, <, <="}
	}
	return nil
}

func (c *ThresholdCountConfig) RequiredFields() []string {
	return []string{c.Field}
}

func (c *ThresholdCountConfig) Evaluate(snap Snapshot, _ time.Time) MatchResult {
	value, ok := snapshotFloat(snap, c.Field)
	if !ok {
		return NoMatch
	}
	return MatchResult{
		Matched: compare(value, c.Operator, c.Value),
		Metrics: map[string]float64{"value": value},
	}
}

// ThresholdPercentConfig matches on a computed ratio of two snapshot fields,
// expressed as a percentage. A zero or missing denominator never matches and
// never errors.
type ThresholdPercentConfig struct {
	NumeratorField   string  `json:"numerator_field"`
	DenominatorField string  `json:"denominator_field"`
	Operator         string  `json:"operator"`
	Value            float64 `json:"value"`
}

func (c *ThresholdPercentConfig) Validate() error {
	if c.NumeratorField == "" {
		return &ConfigurationError{ConditionType: ConditionThresholdPercent, Field: "numerator_field", Reason: "is required"}
	}
	if c.DenominatorField == "" {
		return &ConfigurationError{ConditionType: ConditionThresholdPercent, Field: "denominator_field", Reason: "is required"}
	}
	if !validOperator(c.Operator) {
		return &ConfigurationError{ConditionType: ConditionThresholdPercent, Field: "operator", Reason: "must be one of >=, >, ==, <, <="}
	}
	return nil
}

func (c *ThresholdPercentConfig) RequiredFields() []string {
	return []string{c.NumeratorField, c.DenominatorField}
}

func (c *ThresholdPercentConfig) Evaluate(snap Snapshot, _ time.Time) MatchResult {
	num, ok := snapshotFloat(snap, c.NumeratorField)
	if !ok {
		return NoMatch
	}
	den, ok := snapshotFloat(snap, c.DenominatorField)
	if !ok || den == 0 {
		return NoMatch
	}
	percentage := num / den * 100
	return MatchResult{
		Matched: compare(percentage, c.Operator, c.Value),
		Metrics: map[string]float64{"percentage": percentage},
	}
}

// TimeSinceEventConfig matches when at least Since has elapsed from a
// timestamp snapshot field. A missing or unparsable timestamp never matches.
type TimeSinceEventConfig struct {
	TimestampField string        `json:"timestamp_field"`
	Since          conf.Duration `json:"since"`
}

func (c *TimeSinceEventConfig) Validate() error {
	if c.TimestampField == "" {
		return &ConfigurationError{ConditionType: ConditionTimeSinceEvent, Field: "timestamp_field", Reason: "is required"}
	}
	if c.Since.Std() <= 0 {
		return &ConfigurationError{ConditionType: ConditionTimeSinceEvent, Field: "since", Reason: "must be a positive duration"}
	}
	return nil
}

func (c *TimeSinceEventConfig) RequiredFields() []string {
	return []string{c.TimestampField}
}

func (c *TimeSinceEventConfig) Evaluate(snap Snapshot, now time.Time) MatchResult {
	ts, ok := snapshotTime(snap, c.TimestampField)
	if !ok {
		return NoMatch
	}
	elapsed := now.Sub(ts)
	return MatchResult{
		Matched: elapsed >= c.Since.Std(),
		Metrics: map[string]float64{"hours_since": elapsed.Hours()},
	}
}

// CustomCheck is a named built-in evaluation function. The set is closed and
// compiled in; "custom" rules select one by name.
type CustomCheck func(snap Snapshot, now time.Time) MatchResult

// customChecks is the registry of built-in named checks.
var customChecks = map[string]CustomCheck{
	"class_over_capacity": checkClassOverCapacity,
}

// checkClassOverCapacity matches when active enrollments exceed a class's
// capacity limit. Unlimited classes never match.
func checkClassOverCapacity(snap Snapshot, _ time.Time) MatchResult {
	current, ok := snapshotFloat(snap, FieldCurrentEnrollments)
	if !ok {
		return NoMatch
	}
	max, ok := snapshotFloat(snap, FieldMaxCapacity)
	if !ok || max <= 0 {
		return NoMatch
	}
	return MatchResult{
		Matched: current > max,
		Metrics: map[string]float64{"percentage": current / max * 100},
	}
}

// CustomConfig selects a built-in named check.
type CustomConfig struct {
	Check string `json:"check"`
}

func (c *CustomConfig) Validate() error {
	if c.Check == "" {
		return &ConfigurationError{ConditionType: ConditionCustom, Field: "check", Reason: "is required"}
	}
	if _, ok := customChecks[c.Check]; !ok {
		return &ConfigurationError{ConditionType: ConditionCustom, Field: "check", Reason: "unknown check name"}
	}
	return nil
}

func (c *CustomConfig) RequiredFields() []string {
	// Custom checks read what they need; providers fetch the full snapshot.
	return nil
}

func (c *CustomConfig) Evaluate(snap Snapshot, now time.Time) MatchResult {
	check, ok := customChecks[c.Check]
	if !ok {
		return NoMatch
	}
	return check(snap, now)
}

func validOperator(operator string) bool {
	switch operator {
	case OperatorGreaterOrEqual, OperatorGreaterThan, OperatorEqual, OperatorLessThan, OperatorLessOrEqual:
		return true
	}
	return false
}
