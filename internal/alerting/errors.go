package alerting

import "fmt"

// ConfigurationError reports a malformed rule definition. It is surfaced to
// the rule author; evaluation of other rules continues.
type ConfigurationError struct {
	ConditionType string
	Field         string
	Reason        string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s config: field %q %s", e.ConditionType, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s config: %s", e.ConditionType, e.Reason)
}

// InvalidTransitionError reports a forbidden alert lifecycle transition.
type InvalidTransitionError struct {
	AlertID string
	From    string
	To      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("alert %s: cannot transition from %s to %s", e.AlertID, e.From, e.To)
}
