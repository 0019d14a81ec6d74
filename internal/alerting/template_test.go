package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

func TestRenderMessage(t *testing.T) {
	rule := &entities.AlertRule{
		Name:            "High absences",
		Code:            "student.high_absences",
		EntityType:      EntityTypeStudent,
		MessageTemplate: "{{name}} has {{value}} absences in the last 30 days",
	}
	snap := Snapshot{FieldName: "Jamie Reyes", FieldAbsences30d: 7}
	metrics := map[string]float64{"value": 7}

	got := RenderMessage(rule, "stu-1", snap, metrics)
	assert.Equal(t, "Jamie Reyes has 7 absences in the last 30 days", got)
}

func TestRenderMessage_RuleVariables(t *testing.T) {
	rule := &entities.AlertRule{
		Name:            "Crowding",
		Code:            "class.crowding",
		EntityType:      EntityTypeClass,
		MessageTemplate: "{{rule_name}} fired for {{entity_type}} {{entity_id}}",
	}
	got := RenderMessage(rule, "class-1", Snapshot{}, nil)
	assert.Equal(t, "Crowding fired for class class-1", got)
}

func TestRenderMessage_EmptyTemplateFallback(t *testing.T) {
	rule := &entities.AlertRule{
		Name:       "High absences",
		EntityType: EntityTypeStudent,
	}
	got := RenderMessage(rule, "stu-1", Snapshot{}, nil)
	assert.Equal(t, "Alert: High absences (student stu-1)", got)
}

func TestRenderMessage_UnknownPlaceholderLeftIntact(t *testing.T) {
	rule := &entities.AlertRule{
		Name:            "Test",
		MessageTemplate: "value is {{nonexistent}}",
	}
	got := RenderMessage(rule, "stu-1", Snapshot{}, nil)
	assert.Equal(t, "value is {{nonexistent}}", got)
}

func TestRenderMessage_NilPointerFields(t *testing.T) {
	rule := &entities.AlertRule{
		Name:            "Capacity",
		MessageTemplate: "limit: {{max_capacity}}",
	}
	got := RenderMessage(rule, "class-1", Snapshot{FieldMaxCapacity: (*int)(nil)}, nil)
	assert.Equal(t, "limit: ", got)
}
