package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/datastore/entities"
	"github.com/edusphere/alertengine/internal/datastore/repository"
)

const maxAlertListLimit = 500

// ListActiveAlerts returns the tenant's unresolved alerts, newest first.
func (c *Controller) ListActiveAlerts(ctx echo.Context) error {
	filter := repository.AlertInstanceFilter{
		TenantID:   tenantID(ctx),
		SchoolID:   ctx.QueryParam("school_id"),
		EntityType: ctx.QueryParam("entity_type"),
		RuleCode:   ctx.QueryParam("rule_code"),
	}
	if severity := ctx.QueryParam("severity"); severity != "" {
		if !alerting.ValidSeverity(severity) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Unknown severity"})
		}
		filter.Severity = severity
	}
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		v, err := strconv.Atoi(limitParam)
		if err != nil || v <= 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		filter.Limit = min(v, maxAlertListLimit)
	}

	alerts, err := c.manager.ListActive(ctx.Request().Context(), filter)
	if err != nil {
		c.log.Error("failed to list active alerts", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list alerts"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// AcknowledgeAlert marks an alert as seen by a staff member. Repeating the
// call is harmless; acknowledging a resolved alert is a conflict.
func (c *Controller) AcknowledgeAlert(ctx echo.Context) error {
	alert, err := c.getTenantAlert(ctx)
	if err != nil {
		return c.alertError(ctx, err, "Failed to acknowledge alert")
	}

	var body struct {
		UserID string `json:"user_id"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.UserID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	acked, err := c.manager.Acknowledge(ctx.Request().Context(), alert.ID, body.UserID)
	if err != nil {
		return c.alertError(ctx, err, "Failed to acknowledge alert")
	}
	return ctx.JSON(http.StatusOK, acked)
}

// ResolveAlert closes an alert, freeing its dedup slot so the condition can
// alert again if it re-occurs.
func (c *Controller) ResolveAlert(ctx echo.Context) error {
	alert, err := c.getTenantAlert(ctx)
	if err != nil {
		return c.alertError(ctx, err, "Failed to resolve alert")
	}

	var body struct {
		UserID string `json:"user_id"`
		Notes  string `json:"notes"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.UserID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	resolved, err := c.manager.Resolve(ctx.Request().Context(), alert.ID, body.UserID, body.Notes)
	if err != nil {
		return c.alertError(ctx, err, "Failed to resolve alert")
	}
	return ctx.JSON(http.StatusOK, resolved)
}

// getTenantAlert loads the alert from the :id route parameter and enforces
// tenant ownership.
func (c *Controller) getTenantAlert(ctx echo.Context) (*entities.AlertInstance, error) {
	alert, err := c.alerts.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return nil, err
	}
	if alert.TenantID != tenantID(ctx) {
		return nil, repository.ErrAlertNotFound
	}
	return alert, nil
}

func (c *Controller) alertError(ctx echo.Context, err error, fallback string) error {
	if errors.Is(err, repository.ErrAlertNotFound) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
	}
	var transErr *alerting.InvalidTransitionError
	if errors.As(err, &transErr) {
		return ctx.JSON(http.StatusConflict, map[string]string{"error": transErr.Error()})
	}
	c.log.Error(fallback, zap.Error(err))
	return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": fallback})
}
