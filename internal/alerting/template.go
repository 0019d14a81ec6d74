package alerting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// RenderMessage substitutes {{placeholder}} variables in a rule's message
// template from the snapshot and the evaluation metrics. Falls back to a
// generic message when the template is empty.
func RenderMessage(rule *entities.AlertRule, entityID string, snap Snapshot, metrics map[string]float64) string {
	if rule.MessageTemplate == "" {
		return fmt.Sprintf("Alert: %s (%s %s)", rule.Name, rule.EntityType, entityID)
	}

	pairs := []string{
		"{{rule_name}}", rule.Name,
		"{{rule_code}}", rule.Code,
		"{{entity_type}}", rule.EntityType,
		"{{entity_id}}", entityID,
	}
	for field, value := range snap {
		pairs = append(pairs, "{{"+field+"}}", formatValue(value))
	}
	for name, value := range metrics {
		pairs = append(pairs, "{{"+name+"}}", strconv.FormatFloat(value, 'f', -1, 64))
	}
	return strings.NewReplacer(pairs...).Replace(rule.MessageTemplate)
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	if p, ok := value.(*int); ok {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}
	return fmt.Sprintf("%v", value)
}
