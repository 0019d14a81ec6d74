package capacity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/datastore/repository"
)

// levelRuleCodes maps alerting capacity bands to engine rule codes.
var levelRuleCodes = map[Level]string{
	LevelNear: alerting.RuleCodeNearCapacity,
	LevelFull: alerting.RuleCodeFull,
	LevelOver: alerting.RuleCodeOverCapacity,
}

// levelSeverities maps capacity bands to alert severities.
var levelSeverities = map[Level]string{
	LevelNear: alerting.SeverityWarning,
	LevelFull: alerting.SeverityCritical,
	LevelOver: alerting.SeverityUrgent,
}

// Invalidator drops cached snapshots after a write. Implemented by the
// datastore snapshot provider.
type Invalidator interface {
	Invalidate(entityType, entityID string)
}

// Availability is the seat picture of one class for enrollment flows.
type Availability struct {
	ClassID     string `json:"class_id"`
	Current     int    `json:"current_enrollments"`
	MaxCapacity *int   `json:"max_capacity"`
	SeatsLeft   *int   `json:"seats_left"` // nil for unlimited classes
	Level       string `json:"level"`
	CanEnroll   bool   `json:"can_enroll"`
	Unlimited   bool   `json:"unlimited"`
}

// Monitor evaluates class occupancy on every enrollment or capacity change
// and generates capacity alerts through the lifecycle manager. It never
// resolves alerts itself; staff close them once the roster is sorted out.
type Monitor struct {
	classes     repository.ClassRepository
	manager     *alerting.Manager
	invalidator Invalidator
	channels    []string
	targetRoles []string
	log         *zap.Logger
}

// NewMonitor creates a capacity monitor. invalidator may be nil. Capacity
// alerts have no backing rule row, so the roles they address are configured
// here; empty means school admins.
func NewMonitor(classes repository.ClassRepository, manager *alerting.Manager, invalidator Invalidator, channels, targetRoles []string, log *zap.Logger) *Monitor {
	if len(channels) == 0 {
		channels = []string{alerting.ChannelLog, alerting.ChannelPush}
	}
	if len(targetRoles) == 0 {
		targetRoles = []string{alerting.RoleAdmin}
	}
	return &Monitor{
		classes:     classes,
		manager:     manager,
		invalidator: invalidator,
		channels:    channels,
		targetRoles: targetRoles,
		log:         log,
	}
}

// HandleEnrollmentChange re-evaluates a class after its roster changed.
// Returns the fresh state so callers can surface it immediately.
func (m *Monitor) HandleEnrollmentChange(ctx context.Context, classID string) (State, error) {
	if m.invalidator != nil {
		m.invalidator.Invalidate(alerting.EntityTypeClass, classID)
	}
	return m.evaluate(ctx, classID)
}

// SetClassCapacity updates a class's limit and threshold, then immediately
// re-evaluates so a newly lowered limit alerts without waiting for the sweep.
func (m *Monitor) SetClassCapacity(ctx context.Context, classID string, maxCapacity *int, warningThresholdPercent int) (State, error) {
	if maxCapacity != nil && *maxCapacity < 0 {
		return State{}, fmt.Errorf("max capacity must not be negative")
	}
	if warningThresholdPercent <= 0 || warningThresholdPercent > 100 {
		return State{}, fmt.Errorf("warning threshold must be between 1 and 100")
	}
	if err := m.classes.SetCapacity(ctx, classID, maxCapacity, warningThresholdPercent); err != nil {
		return State{}, err
	}
	if m.invalidator != nil {
		m.invalidator.Invalidate(alerting.EntityTypeClass, classID)
	}
	return m.evaluate(ctx, classID)
}

// CheckClassAvailability reports the seat picture without generating alerts.
func (m *Monitor) CheckClassAvailability(ctx context.Context, classID string) (*Availability, error) {
	class, err := m.classes.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	count, err := m.classes.CountActiveEnrollments(ctx, classID)
	if err != nil {
		return nil, err
	}

	state := Classify(int(count), class.MaxCapacity, class.WarningThresholdPercent)
	avail := &Availability{
		ClassID:     classID,
		Current:     state.Current,
		MaxCapacity: class.MaxCapacity,
		Level:       state.Level.String(),
		CanEnroll:   state.Unlimited() || state.SeatsLeft > 0,
		Unlimited:   state.Unlimited(),
	}
	if !state.Unlimited() {
		seats := state.SeatsLeft
		avail.SeatsLeft = &seats
	}
	return avail, nil
}

// Sweep re-evaluates every capped class of a tenant. Run periodically to
// catch drift from bulk imports and out-of-band roster edits.
func (m *Monitor) Sweep(ctx context.Context, tenantID string) error {
	ids, err := m.classes.ListCappedClassIDs(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list capped classes: %w", err)
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := m.evaluate(ctx, id); err != nil {
			m.log.Warn("capacity sweep: class evaluation failed",
				zap.String("class_id", id),
				zap.Error(err))
		}
	}
	return nil
}

// evaluate classifies one class and generates an alert on the alerting bands.
// Band changes while an alert is open produce a new instance under the new
// rule code; the previous one stays until staff resolve it.
func (m *Monitor) evaluate(ctx context.Context, classID string) (State, error) {
	class, err := m.classes.GetClass(ctx, classID)
	if err != nil {
		return State{}, err
	}
	count, err := m.classes.CountActiveEnrollments(ctx, classID)
	if err != nil {
		return State{}, err
	}

	state := Classify(int(count), class.MaxCapacity, class.WarningThresholdPercent)
	if state.Level == LevelOK {
		return state, nil
	}

	metrics := map[string]float64{
		"current_enrollments": float64(state.Current),
		"percentage":          state.Percent,
	}
	if class.MaxCapacity != nil {
		metrics["max_capacity"] = float64(*class.MaxCapacity)
	}

	_, created, err := m.manager.GenerateIfAbsent(ctx, alerting.GenerateParams{
		RuleCode:    levelRuleCodes[state.Level],
		TenantID:    class.TenantID,
		SchoolID:    class.SchoolID,
		EntityType:  alerting.EntityTypeClass,
		EntityID:    classID,
		Severity:    levelSeverities[state.Level],
		Message:     state.Describe(class.Name),
		Metrics:     metrics,
		Channels:    m.channels,
		TargetRoles: m.targetRoles,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return state, fmt.Errorf("failed to generate capacity alert: %w", err)
	}
	if created {
		m.log.Info("capacity alert generated",
			zap.String("class_id", classID),
			zap.String("level", state.Level.String()),
			zap.Int("current", state.Current))
	}
	return state, nil
}
