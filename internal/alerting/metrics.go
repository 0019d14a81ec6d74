package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine-level Prometheus metrics. Registered on the default registry and
// exposed by the API's /metrics endpoint.
var (
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertengine_evaluations_total",
		Help: "Condition evaluations by result (match, no_match, error).",
	}, []string{"result"})

	AlertsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertengine_alerts_generated_total",
		Help: "New alert instances created, by severity.",
	}, []string{"severity"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertengine_notifications_total",
		Help: "Notification dispatches handed to the router, by channel.",
	}, []string{"channel"})

	RuleErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alertengine_rule_errors_total",
		Help: "Evaluation pass errors, by kind (configuration, snapshot, store).",
	}, []string{"kind"})
)
