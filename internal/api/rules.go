package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/datastore/entities"
	"github.com/edusphere/alertengine/internal/datastore/repository"
	"github.com/edusphere/alertengine/internal/scheduler"
)

// ListRules returns the tenant's alert rules, optionally filtered.
func (c *Controller) ListRules(ctx echo.Context) error {
	filter := repository.AlertRuleFilter{
		TenantID:   tenantID(ctx),
		EntityType: ctx.QueryParam("entity_type"),
	}
	if activeParam := ctx.QueryParam("is_active"); activeParam != "" {
		v := activeParam == "true"
		filter.IsActive = &v
	}
	if builtInParam := ctx.QueryParam("built_in"); builtInParam != "" {
		v := builtInParam == "true"
		filter.BuiltIn = &v
	}

	rules, err := c.rules.ListRules(ctx.Request().Context(), filter)
	if err != nil {
		c.log.Error("failed to list alert rules", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list alert rules"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule returns a single alert rule by ID.
func (c *Controller) GetRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	rule, err := c.getTenantRule(ctx, id)
	if err != nil {
		return c.ruleError(ctx, err, "Failed to get alert rule")
	}
	return ctx.JSON(http.StatusOK, rule)
}

// CreateRule validates and stores a new alert rule. The condition config is
// parsed here so malformed rules are rejected at authoring time, not found
// during a scheduled pass.
func (c *Controller) CreateRule(ctx echo.Context) error {
	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	rule.ID = 0
	rule.TenantID = tenantID(ctx)
	rule.BuiltIn = false

	if msg := validateRule(&rule); msg != "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	reqCtx := ctx.Request().Context()
	count, err := c.rules.CountRulesByCode(reqCtx, rule.TenantID, rule.Code)
	if err != nil {
		c.log.Error("failed to check rule code uniqueness", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create alert rule"})
	}
	if count > 0 {
		return ctx.JSON(http.StatusConflict, map[string]string{"error": "A rule with this code already exists"})
	}

	if err := c.rules.CreateRule(reqCtx, &rule); err != nil {
		c.log.Error("failed to create alert rule", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create alert rule"})
	}

	c.log.Info("alert rule created",
		zap.String("tenant_id", rule.TenantID),
		zap.String("code", rule.Code),
		zap.Uint("id", rule.ID))

	return ctx.JSON(http.StatusCreated, rule)
}

// UpdateRule replaces an existing alert rule.
func (c *Controller) UpdateRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	existing, err := c.getTenantRule(ctx, id)
	if err != nil {
		return c.ruleError(ctx, err, "Failed to get alert rule")
	}

	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	// Identity fields are immutable; only the definition changes.
	rule.ID = existing.ID
	rule.TenantID = existing.TenantID
	rule.Code = existing.Code
	rule.BuiltIn = existing.BuiltIn
	rule.CreatedAt = existing.CreatedAt

	if msg := validateRule(&rule); msg != "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	if err := c.rules.UpdateRule(ctx.Request().Context(), &rule); err != nil {
		c.log.Error("failed to update alert rule", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update alert rule"})
	}
	return ctx.JSON(http.StatusOK, rule)
}

// DeleteRule removes a rule. Deletion is refused while the rule still has
// unresolved alert instances so the active feed never references a missing
// rule; resolve them first.
func (c *Controller) DeleteRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	if _, err := c.getTenantRule(ctx, id); err != nil {
		return c.ruleError(ctx, err, "Failed to get alert rule")
	}

	reqCtx := ctx.Request().Context()
	open, err := c.alerts.CountActiveForRule(reqCtx, id)
	if err != nil {
		c.log.Error("failed to count active alerts for rule", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete alert rule"})
	}
	if open > 0 {
		return ctx.JSON(http.StatusConflict, map[string]any{
			"error":         "Rule has unresolved alerts; resolve them before deleting",
			"active_alerts": open,
		})
	}

	if err := c.rules.DeleteRule(reqCtx, id); err != nil {
		return c.ruleError(ctx, err, "Failed to delete alert rule")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ToggleRule enables or disables a rule without editing its definition.
func (c *Controller) ToggleRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	var body struct {
		IsActive bool `json:"is_active"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if _, err := c.getTenantRule(ctx, id); err != nil {
		return c.ruleError(ctx, err, "Failed to get alert rule")
	}

	if err := c.rules.ToggleRule(ctx.Request().Context(), id, body.IsActive); err != nil {
		return c.ruleError(ctx, err, "Failed to toggle alert rule")
	}
	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "is_active": body.IsActive})
}

// RunRuleNow evaluates a stored rule immediately, outside its schedule.
func (c *Controller) RunRuleNow(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	if _, err := c.getTenantRule(ctx, id); err != nil {
		return c.ruleError(ctx, err, "Failed to get alert rule")
	}

	result, err := c.sched.RunNow(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, scheduler.ErrRuleBusy) {
			return ctx.JSON(http.StatusConflict, map[string]string{"error": "Rule evaluation already in progress"})
		}
		c.log.Error("manual rule run failed", zap.Uint("rule_id", id), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to run alert rule"})
	}
	return ctx.JSON(http.StatusOK, result)
}

// TestRule dry-runs a rule definition from the request body without saving
// it or generating alerts. Admins preview which entities would match.
func (c *Controller) TestRule(ctx echo.Context) error {
	var rule entities.AlertRule
	if err := ctx.Bind(&rule); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	rule.TenantID = tenantID(ctx)

	if msg := validateRule(&rule); msg != "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	result, matched, err := c.sched.DryRun(ctx.Request().Context(), &rule)
	if err != nil {
		var confErr *alerting.ConfigurationError
		if errors.As(err, &confErr) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": confErr.Error()})
		}
		c.log.Error("rule dry run failed", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to test alert rule"})
	}

	if matched == nil {
		matched = []string{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"result":  result,
		"matched": matched,
	})
}

// getTenantRule loads a rule and enforces tenant ownership. Rules of other
// tenants are indistinguishable from missing ones.
func (c *Controller) getTenantRule(ctx echo.Context, id uint) (*entities.AlertRule, error) {
	rule, err := c.rules.GetRule(ctx.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if rule.TenantID != tenantID(ctx) {
		return nil, repository.ErrAlertRuleNotFound
	}
	return rule, nil
}

func (c *Controller) ruleError(ctx echo.Context, err error, fallback string) error {
	if errors.Is(err, repository.ErrAlertRuleNotFound) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
	}
	c.log.Error(fallback, zap.Error(err))
	return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": fallback})
}

// validateRule checks a rule definition and returns an error message, or ""
// when the rule is acceptable.
func validateRule(rule *entities.AlertRule) string {
	if rule.Code == "" {
		return "Rule code is required"
	}
	if rule.Name == "" {
		return "Rule name is required"
	}
	if !alerting.ValidEntityType(rule.EntityType) {
		return "Unknown entity type"
	}
	if !alerting.ValidSeverity(rule.Severity) {
		return "Unknown severity"
	}
	if !alerting.ValidFrequency(rule.CheckFrequency) {
		return "Unknown check frequency"
	}
	if rule.CheckFrequency == alerting.FrequencyInterval && rule.CheckEveryMinutes < 0 {
		return "check_every_minutes must not be negative"
	}
	if _, err := alerting.ParseConditionConfig(rule.ConditionType, rule.ConditionConfig); err != nil {
		return err.Error()
	}
	return ""
}
