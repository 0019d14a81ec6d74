package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// LogSender writes alerts to the service log. Always available; the fallback
// channel when nothing else is configured.
type LogSender struct {
	log *zap.Logger
}

// NewLogSender creates the log channel sender.
func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

// Name implements Sender.
func (s *LogSender) Name() string {
	return alerting.ChannelLog
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, alert *entities.AlertInstance, targetRoles []string) error {
	s.log.Warn("ALERT",
		zap.String("alert_id", alert.ID),
		zap.String("rule_code", alert.RuleCode),
		zap.String("tenant_id", alert.TenantID),
		zap.String("entity_type", alert.EntityType),
		zap.String("entity_id", alert.EntityID),
		zap.String("severity", alert.Severity),
		zap.Strings("target_roles", targetRoles),
		zap.String("message", alert.Message))
	return nil
}
