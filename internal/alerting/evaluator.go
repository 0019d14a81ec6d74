package alerting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// Evaluate checks a rule's condition against an entity snapshot.
// It is pure and side-effect-free. Malformed configs return a
// *ConfigurationError; snapshot gaps (missing field, zero denominator)
// evaluate to NoMatch, never an error.
func Evaluate(rule *entities.AlertRule, snap Snapshot, now time.Time) (MatchResult, error) {
	cfg, err := ParseConditionConfig(rule.ConditionType, rule.ConditionConfig)
	if err != nil {
		return NoMatch, err
	}
	return cfg.Evaluate(snap, now), nil
}

// RequiredFields returns the snapshot fields a rule's condition reads, or
// nil when the provider should fetch the full snapshot.
func RequiredFields(rule *entities.AlertRule) ([]string, error) {
	cfg, err := ParseConditionConfig(rule.ConditionType, rule.ConditionConfig)
	if err != nil {
		return nil, err
	}
	return cfg.RequiredFields(), nil
}

func compare(value float64, operator string, threshold float64) bool {
	switch operator {
	case OperatorGreaterOrEqual:
		return value >= threshold
	case OperatorGreaterThan:
		return value > threshold
	case OperatorEqual:
		return value == threshold
	case OperatorLessThan:
		return value < threshold
	case OperatorLessOrEqual:
		return value <= threshold
	default:
		return false
	}
}

// snapshotFloat reads a numeric snapshot field. Missing fields and nil
// values (e.g. an unlimited capacity) report !ok.
func snapshotFloat(snap Snapshot, field string) (float64, bool) {
	raw, exists := snap[field]
	if !exists || raw == nil {
		return 0, false
	}
	value, err := toFloat64(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

// snapshotTime reads a timestamp snapshot field, accepting time.Time,
// *time.Time, and RFC 3339 strings.
func snapshotTime(snap Snapshot, field string) (time.Time, bool) {
	raw, exists := snap[field]
	if !exists || raw == nil {
		return time.Time{}, false
	}
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case string:
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	default:
		return time.Time{}, false
	}
}

func toFloat64(val any) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case *int:
		if v == nil {
			return 0, fmt.Errorf("nil *int")
		}
		return float64(*v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", val)
	}
}
