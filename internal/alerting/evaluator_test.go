package alerting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

func TestEvaluate_ThresholdCount(t *testing.T) {
	rule := &entities.AlertRule{
		Code:            "student.high_absences",
		EntityType:      EntityTypeStudent,
		ConditionType:   ConditionThresholdCount,
		ConditionConfig: `{"field":"absences_30d","operator":">=","value":5}`,
	}

	result, err := Evaluate(rule, Snapshot{FieldAbsences30d: 6}, time.Now())
	require.NoError(t, err)
	assert.True(t, result.Matched)

	result, err = Evaluate(rule, Snapshot{FieldAbsences30d: 2}, time.Now())
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestEvaluate_IsPure(t *testing.T) {
	rule := &entities.AlertRule{
		ConditionType:   ConditionThresholdPercent,
		ConditionConfig: `{"numerator_field":"present_days","denominator_field":"tracked_days","operator":"<","value":80}`,
	}
	snap := Snapshot{FieldPresentDays: 10, FieldTrackedDays: 20}
	now := time.Now()

	first, err := Evaluate(rule, snap, now)
	require.NoError(t, err)
	for range 5 {
		again, err := Evaluate(rule, snap, now)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestEvaluate_MalformedConfigReturnsError(t *testing.T) {
	rule := &entities.AlertRule{
		ConditionType:   ConditionThresholdCount,
		ConditionConfig: `{"operator":">="}`,
	}
	_, err := Evaluate(rule, Snapshot{}, time.Now())
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRequiredFields(t *testing.T) {
	rule := &entities.AlertRule{
		ConditionType:   ConditionThresholdPercent,
		ConditionConfig: `{"numerator_field":"present_days","denominator_field":"tracked_days","operator":"<","value":80}`,
	}
	fields, err := RequiredFields(rule)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{FieldPresentDays, FieldTrackedDays}, fields)
}

func TestRequiredFields_CustomFetchesFullSnapshot(t *testing.T) {
	rule := &entities.AlertRule{
		ConditionType:   ConditionCustom,
		ConditionConfig: `{"check":"class_over_capacity"}`,
	}
	fields, err := RequiredFields(rule)
	require.NoError(t, err)
	assert.Nil(t, fields)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		operator string
		thresh   float64
		want     bool
	}{
		{"gte equal", 5, OperatorGreaterOrEqual, 5, true},
		{"gte above", 6, OperatorGreaterOrEqual, 5, true},
		{"gte below", 4, OperatorGreaterOrEqual, 5, false},
		{"gt equal", 5, OperatorGreaterThan, 5, false},
		{"eq match", 100, OperatorEqual, 100, true},
		{"lt match", 79, OperatorLessThan, 80, true},
		{"lte equal", 80, OperatorLessOrEqual, 80, true},
		{"unknown operator", 5, "~", 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compare(tt.value, tt.operator, tt.thresh))
		})
	}
}

func TestSnapshotFloat_Types(t *testing.T) {
	limit := 25
	tests := []struct {
		name string
		val  any
		want float64
		ok   bool
	}{
		{"int", 5, 5, true},
		{"int64", int64(7), 7, true},
		{"float64", 3.5, 3.5, true},
		{"string number", "12", 12, true},
		{"int pointer", &limit, 25, true},
		{"nil int pointer", (*int)(nil), 0, false},
		{"garbage string", "abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := snapshotFloat(Snapshot{"f": tt.val}, "f")
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}
