package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/datastore/entities"
	"github.com/edusphere/alertengine/internal/datastore/repository"
)

// Notifier receives newly generated alert instances for delivery. Implemented
// by the notification router; defined here so the lifecycle manager does not
// import the notification package.
type Notifier interface {
	Notify(ctx context.Context, alert *entities.AlertInstance, channels, targetRoles []string)
}

// GenerateParams carries everything needed to create one alert instance.
// RuleID is nil for engine-generated alerts (capacity); RuleCode is always set.
type GenerateParams struct {
	RuleID      *uint
	RuleCode    string
	TenantID    string
	SchoolID    string
	EntityType  string
	EntityID    string
	Severity    string
	Message     string
	Metrics     map[string]float64
	Channels    []string
	TargetRoles []string
	GeneratedAt time.Time
}

// Manager owns the alert instance lifecycle. It is the single write path for
// instances: generation is deduplicated against the active set, and status
// transitions are strictly forward (active, acknowledged, resolved).
type Manager struct {
	alerts   repository.AlertInstanceRepository
	notifier Notifier
	log      *zap.Logger
}

// NewManager creates a lifecycle manager. notifier may be nil, in which case
// new alerts are stored but not delivered anywhere.
func NewManager(alerts repository.AlertInstanceRepository, notifier Notifier, log *zap.Logger) *Manager {
	return &Manager{alerts: alerts, notifier: notifier, log: log}
}

// GenerateIfAbsent creates a new active alert instance unless one already
// exists for the same (rule, entity) pair. The returned bool reports whether
// a new instance was created. On a dedup hit the existing instance is
// returned with its message and metrics refreshed when they changed; the
// notifier is only invoked for genuinely new instances.
func (m *Manager) GenerateIfAbsent(ctx context.Context, p GenerateParams) (*entities.AlertInstance, bool, error) {
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = time.Now()
	}

	alert := &entities.AlertInstance{
		ID:          uuid.NewString(),
		RuleID:      p.RuleID,
		RuleCode:    p.RuleCode,
		EntityType:  p.EntityType,
		EntityID:    p.EntityID,
		TenantID:    p.TenantID,
		SchoolID:    p.SchoolID,
		Severity:    p.Severity,
		Message:     p.Message,
		Data:        encodeMetrics(p.Metrics),
		Status:      entities.AlertStatusActive,
		GeneratedAt: p.GeneratedAt,
	}
	dedupKey := entities.ActiveDedupKey(alert.RuleRef(), p.EntityID)
	alert.DedupKey = &dedupKey

	err := m.alerts.CreateActive(ctx, alert)
	if err == nil {
		AlertsGeneratedTotal.WithLabelValues(p.Severity).Inc()
		m.log.Info("alert generated",
			zap.String("alert_id", alert.ID),
			zap.String("rule_code", p.RuleCode),
			zap.String("entity_type", p.EntityType),
			zap.String("entity_id", p.EntityID),
			zap.String("severity", p.Severity))
		if m.notifier != nil {
			m.notifier.Notify(ctx, alert, p.Channels, p.TargetRoles)
		}
		return alert, true, nil
	}
	if !errors.Is(err, repository.ErrDuplicateActiveAlert) {
		return nil, false, fmt.Errorf("failed to create alert instance: %w", err)
	}

	// Lost the race or the alert already existed. Fetch the live instance
	// and refresh its payload if the underlying metric moved.
	existing, err := m.alerts.GetActiveByDedupKey(ctx, dedupKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load existing active alert: %w", err)
	}
	if m.refresh(existing, p) {
		if err := m.alerts.Save(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("failed to refresh active alert: %w", err)
		}
	}
	return existing, false, nil
}

// refresh updates an existing active instance from a fresh evaluation.
// Returns true when something material changed.
func (m *Manager) refresh(alert *entities.AlertInstance, p GenerateParams) bool {
	changed := false
	if data := encodeMetrics(p.Metrics); data != alert.Data {
		alert.Data = data
		changed = true
	}
	if p.Message != "" && p.Message != alert.Message {
		alert.Message = p.Message
		changed = true
	}
	if p.Severity != "" && p.Severity != alert.Severity {
		alert.Severity = p.Severity
		changed = true
	}
	return changed
}

// Acknowledge marks an active alert as acknowledged. Acknowledging an
// already-acknowledged alert is a no-op; acknowledging a resolved alert
// returns *InvalidTransitionError.
func (m *Manager) Acknowledge(ctx context.Context, alertID, userID string) (*entities.AlertInstance, error) {
	alert, err := m.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}

	switch alert.Status {
	case entities.AlertStatusAcknowledged:
		return alert, nil // idempotent
	case entities.AlertStatusResolved:
		return nil, &InvalidTransitionError{AlertID: alertID, From: alert.Status, To: entities.AlertStatusAcknowledged}
	}

	now := time.Now()
	alert.Status = entities.AlertStatusAcknowledged
	alert.AcknowledgedAt = &now
	alert.AcknowledgedBy = userID
	if err := m.alerts.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	m.log.Info("alert acknowledged",
		zap.String("alert_id", alertID),
		zap.String("user_id", userID))
	return alert, nil
}

// Resolve closes an alert from the active or acknowledged state. Clearing
// the dedup key is what permits a future instance for the same (rule,
// entity) pair. Resolving a resolved alert returns *InvalidTransitionError.
func (m *Manager) Resolve(ctx context.Context, alertID, userID, notes string) (*entities.AlertInstance, error) {
	alert, err := m.alerts.GetByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status == entities.AlertStatusResolved {
		return nil, &InvalidTransitionError{AlertID: alertID, From: alert.Status, To: entities.AlertStatusResolved}
	}

	now := time.Now()
	alert.Status = entities.AlertStatusResolved
	alert.ResolvedAt = &now
	alert.ResolutionNotes = notes
	alert.DedupKey = nil
	if err := m.alerts.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	m.log.Info("alert resolved",
		zap.String("alert_id", alertID),
		zap.String("user_id", userID))
	return alert, nil
}

// ListActive returns the unresolved alerts matching the filter.
func (m *Manager) ListActive(ctx context.Context, filter repository.AlertInstanceFilter) ([]entities.AlertInstance, error) {
	return m.alerts.ListActive(ctx, filter)
}

func encodeMetrics(metrics map[string]float64) string {
	if len(metrics) == 0 {
		return ""
	}
	data, err := json.Marshal(metrics)
	if err != nil {
		return ""
	}
	return string(data)
}
