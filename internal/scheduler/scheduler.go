// Package scheduler drives periodic rule evaluation: a tick loop finds due
// rules and a fixed worker pool evaluates them across their entity scope.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/datastore/entities"
	"github.com/edusphere/alertengine/internal/datastore/repository"
)

// ErrRuleBusy is returned by RunNow when the rule is already being evaluated.
var ErrRuleBusy = errors.New("rule evaluation already in flight")

// ruleState tracks per-rule pass bookkeeping. inFlight prevents overlapping
// passes for the same rule when one pass outlasts a tick. badConfigAt holds
// the rule's UpdatedAt when its condition config failed to parse; the rule
// is skipped until it is edited again.
type ruleState struct {
	lastRun     time.Time
	inFlight    bool
	badConfigAt time.Time
}

// Options configures the scheduler loop.
type Options struct {
	TickInterval time.Duration
	Workers      int
	// DailyHour is the local hour (0-23) at which daily rules run.
	DailyHour int
}

// RunResult summarizes one evaluation pass over a rule.
type RunResult struct {
	RuleID          uint   `json:"rule_id"`
	RuleCode        string `json:"rule_code"`
	EntitiesChecked int    `json:"entities_checked"`
	Matches         int    `json:"matches"`
	AlertsGenerated int    `json:"alerts_generated"`
	Errors          int    `json:"errors"`
}

// Scheduler periodically evaluates interval and daily rules. Realtime rules
// are evaluated by HandleEvent, driven by the engine event bus.
type Scheduler struct {
	rules    repository.AlertRuleRepository
	provider alerting.SnapshotProvider
	manager  *alerting.Manager
	opts     Options
	log      *zap.Logger

	states   map[uint]*ruleState
	statesMu sync.Mutex

	jobs     chan entities.AlertRule
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a scheduler. Start must be called to begin the loop.
func New(rules repository.AlertRuleRepository, provider alerting.SnapshotProvider, manager *alerting.Manager, opts Options, log *zap.Logger) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 30 * time.Second
	}
	return &Scheduler{
		rules:    rules,
		provider: provider,
		manager:  manager,
		opts:     opts,
		log:      log,
		states:   make(map[uint]*ruleState),
		jobs:     make(chan entities.AlertRule, opts.Workers*2),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the tick loop and worker pool. The context cancels the
// whole scheduler; Stop does the same explicitly.
func (s *Scheduler) Start(ctx context.Context) {
	for range s.opts.Workers {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	s.wg.Add(1)
	go s.tickLoop(ctx)

	s.log.Info("scheduler started",
		zap.Duration("tick_interval", s.opts.TickInterval),
		zap.Int("workers", s.opts.Workers))
}

// Stop shuts the scheduler down and waits for in-flight passes to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) tickLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			s.dispatchDue(ctx, now)
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// dispatchDue enqueues every due rule. Rules with a pass still in flight are
// skipped; their state flips back when the pass completes.
func (s *Scheduler) dispatchDue(ctx context.Context, now time.Time) {
	active := true
	rules, err := s.rules.ListRules(ctx, repository.AlertRuleFilter{IsActive: &active})
	if err != nil {
		s.log.Error("scheduler: failed to list rules", zap.Error(err))
		alerting.RuleErrorsTotal.WithLabelValues("store").Inc()
		return
	}

	for i := range rules {
		rule := rules[i]
		if !s.due(&rule, now) {
			continue
		}
		if !s.markInFlight(rule.ID) {
			continue
		}
		select {
		case s.jobs <- rule:
		default:
			// Queue full, try again next tick
			s.clearInFlight(rule.ID, time.Time{})
		}
	}
}

// due decides whether a rule should run at the given instant.
func (s *Scheduler) due(rule *entities.AlertRule, now time.Time) bool {
	s.statesMu.Lock()
	state, ok := s.states[rule.ID]
	s.statesMu.Unlock()
	var lastRun time.Time
	if ok {
		// A rule with an unusable config stays parked until it is edited.
		if !state.badConfigAt.IsZero() && !rule.UpdatedAt.After(state.badConfigAt) {
			return false
		}
		lastRun = state.lastRun
	}

	switch rule.CheckFrequency {
	case alerting.FrequencyInterval:
		every := time.Duration(rule.CheckEveryMinutes) * time.Minute
		if every <= 0 {
			every = time.Hour
		}
		return lastRun.IsZero() || now.Sub(lastRun) >= every
	case alerting.FrequencyDaily:
		if now.Hour() != s.opts.DailyHour {
			return false
		}
		return lastRun.IsZero() || !sameDay(lastRun, now)
	default:
		// Realtime rules are event-driven, never tick-driven
		return false
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// markBadConfig parks a rule after a configuration failure. due clears the
// park implicitly once the rule's UpdatedAt moves past the recorded instant.
func (s *Scheduler) markBadConfig(rule *entities.AlertRule) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	state, ok := s.states[rule.ID]
	if !ok {
		state = &ruleState{}
		s.states[rule.ID] = state
	}
	state.badConfigAt = rule.UpdatedAt
}

func (s *Scheduler) markInFlight(ruleID uint) bool {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	state, ok := s.states[ruleID]
	if !ok {
		state = &ruleState{}
		s.states[ruleID] = state
	}
	if state.inFlight {
		return false
	}
	state.inFlight = true
	return true
}

func (s *Scheduler) clearInFlight(ruleID uint, completedAt time.Time) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	if state, ok := s.states[ruleID]; ok {
		state.inFlight = false
		if !completedAt.IsZero() {
			state.lastRun = completedAt
		}
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case rule := <-s.jobs:
			result := s.runRule(ctx, &rule)
			s.clearInFlight(rule.ID, time.Now())
			if result.Errors > 0 {
				s.log.Warn("rule pass finished with errors",
					zap.Uint("rule_id", rule.ID),
					zap.String("rule_code", rule.Code),
					zap.Int("errors", result.Errors))
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

// RunNow evaluates one rule synchronously, outside its schedule. Returns
// ErrRuleBusy if a scheduled pass is already running. lastRun is left
// untouched so a manual run never postpones the natural schedule.
func (s *Scheduler) RunNow(ctx context.Context, ruleID uint) (*RunResult, error) {
	rule, err := s.rules.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if !s.markInFlight(rule.ID) {
		return nil, ErrRuleBusy
	}
	result := s.runRule(ctx, rule)
	s.clearInFlight(rule.ID, time.Time{})
	return result, nil
}

// DryRun evaluates a rule definition without persisting anything. Used by
// the rule test endpoint so admins can preview a rule before saving it.
func (s *Scheduler) DryRun(ctx context.Context, rule *entities.AlertRule) (*RunResult, []string, error) {
	if _, err := alerting.ParseConditionConfig(rule.ConditionType, rule.ConditionConfig); err != nil {
		return nil, nil, err
	}

	result := &RunResult{RuleID: rule.ID, RuleCode: rule.Code}
	var matched []string
	s.forEachEntity(ctx, rule, result, func(entityID string, res alerting.MatchResult, snap alerting.Snapshot) {
		matched = append(matched, entityID)
	})
	return result, matched, nil
}

// HandleEvent evaluates realtime rules for the entity an event refers to.
// Wired as an event bus handler.
func (s *Scheduler) HandleEvent(event *alerting.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	active := true
	rules, err := s.rules.ListRules(ctx, repository.AlertRuleFilter{
		TenantID:   event.TenantID,
		EntityType: event.EntityType,
		IsActive:   &active,
	})
	if err != nil {
		s.log.Error("realtime evaluation: failed to list rules", zap.Error(err))
		alerting.RuleErrorsTotal.WithLabelValues("store").Inc()
		return
	}

	for i := range rules {
		rule := &rules[i]
		if rule.CheckFrequency != alerting.FrequencyRealtime {
			continue
		}
		if err := s.evaluateEntity(ctx, rule, event.EntityID, &RunResult{}); err != nil {
			s.log.Warn("realtime evaluation failed",
				zap.Uint("rule_id", rule.ID),
				zap.String("entity_id", event.EntityID),
				zap.Error(err))
		}
	}
}

// runRule evaluates a rule over its full entity scope. Per-entity failures
// are counted, logged, and skipped; one bad entity never aborts the pass.
func (s *Scheduler) runRule(ctx context.Context, rule *entities.AlertRule) *RunResult {
	result := &RunResult{RuleID: rule.ID, RuleCode: rule.Code}
	s.forEachEntity(ctx, rule, result, func(entityID string, res alerting.MatchResult, snap alerting.Snapshot) {
		created, err := s.generate(ctx, rule, entityID, res, snap)
		if err != nil {
			result.Errors++
			alerting.RuleErrorsTotal.WithLabelValues("store").Inc()
			s.log.Warn("alert generation failed",
				zap.Uint("rule_id", rule.ID),
				zap.String("entity_id", entityID),
				zap.Error(err))
			return
		}
		if created {
			result.AlertsGenerated++
		}
	})
	return result
}

// forEachEntity walks a rule's entity scope, evaluating the condition per
// entity and calling onMatch for entities that match.
func (s *Scheduler) forEachEntity(ctx context.Context, rule *entities.AlertRule, result *RunResult, onMatch func(entityID string, res alerting.MatchResult, snap alerting.Snapshot)) {
	fields, err := alerting.RequiredFields(rule)
	if err != nil {
		result.Errors++
		alerting.RuleErrorsTotal.WithLabelValues("configuration").Inc()
		s.markBadConfig(rule)
		s.log.Error("rule has unusable condition config",
			zap.Uint("rule_id", rule.ID),
			zap.String("rule_code", rule.Code),
			zap.Error(err))
		return
	}
	// Message rendering reads the entity name even when the condition does not.
	if fields != nil {
		fields = append(fields, alerting.FieldName)
	}

	ids, err := s.provider.ListEntityIDs(ctx, rule.EntityType, rule.TenantID, rule.ScopeSchools)
	if err != nil {
		result.Errors++
		alerting.RuleErrorsTotal.WithLabelValues("snapshot").Inc()
		s.log.Error("failed to list entities for rule",
			zap.Uint("rule_id", rule.ID),
			zap.Error(err))
		return
	}

	now := time.Now()
	for _, entityID := range ids {
		if ctx.Err() != nil {
			return
		}
		snap, err := s.provider.GetSnapshot(ctx, rule.EntityType, entityID, fields)
		if err != nil {
			result.Errors++
			alerting.RuleErrorsTotal.WithLabelValues("snapshot").Inc()
			continue
		}
		result.EntitiesChecked++

		res, err := alerting.Evaluate(rule, snap, now)
		if err != nil {
			result.Errors++
			alerting.EvaluationsTotal.WithLabelValues("error").Inc()
			continue
		}
		if !res.Matched {
			alerting.EvaluationsTotal.WithLabelValues("no_match").Inc()
			continue
		}
		alerting.EvaluationsTotal.WithLabelValues("match").Inc()
		result.Matches++
		onMatch(entityID, res, snap)
	}
}

// evaluateEntity runs one rule against one entity and generates on match.
func (s *Scheduler) evaluateEntity(ctx context.Context, rule *entities.AlertRule, entityID string, result *RunResult) error {
	fields, err := alerting.RequiredFields(rule)
	if err != nil {
		alerting.RuleErrorsTotal.WithLabelValues("configuration").Inc()
		return err
	}
	if fields != nil {
		fields = append(fields, alerting.FieldName)
	}

	snap, err := s.provider.GetSnapshot(ctx, rule.EntityType, entityID, fields)
	if err != nil {
		alerting.RuleErrorsTotal.WithLabelValues("snapshot").Inc()
		return err
	}

	res, err := alerting.Evaluate(rule, snap, time.Now())
	if err != nil {
		alerting.EvaluationsTotal.WithLabelValues("error").Inc()
		return err
	}
	if !res.Matched {
		alerting.EvaluationsTotal.WithLabelValues("no_match").Inc()
		return nil
	}
	alerting.EvaluationsTotal.WithLabelValues("match").Inc()
	result.Matches++

	created, err := s.generate(ctx, rule, entityID, res, snap)
	if err != nil {
		return fmt.Errorf("failed to generate alert: %w", err)
	}
	if created {
		result.AlertsGenerated++
	}
	return nil
}

func (s *Scheduler) generate(ctx context.Context, rule *entities.AlertRule, entityID string, res alerting.MatchResult, snap alerting.Snapshot) (bool, error) {
	ruleID := rule.ID
	_, created, err := s.manager.GenerateIfAbsent(ctx, alerting.GenerateParams{
		RuleID:      &ruleID,
		RuleCode:    rule.Code,
		TenantID:    rule.TenantID,
		EntityType:  rule.EntityType,
		EntityID:    entityID,
		Severity:    rule.Severity,
		Message:     alerting.RenderMessage(rule, entityID, snap, res.Metrics),
		Metrics:     res.Metrics,
		Channels:    rule.Channels,
		TargetRoles: rule.TargetRoles,
	})
	return created, err
}
