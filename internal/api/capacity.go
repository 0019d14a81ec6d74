package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/capacity"
	"github.com/edusphere/alertengine/internal/datastore/repository"
)

// ClassAvailability reports the seat picture of a class for enrollment flows.
// It never generates alerts.
func (c *Controller) ClassAvailability(ctx echo.Context) error {
	classID := ctx.Param("id")
	if err := c.checkClassTenant(ctx, classID); err != nil {
		return c.classError(ctx, err, "Failed to check class availability")
	}

	avail, err := c.monitor.CheckClassAvailability(ctx.Request().Context(), classID)
	if err != nil {
		return c.classError(ctx, err, "Failed to check class availability")
	}
	return ctx.JSON(http.StatusOK, avail)
}

// SetClassCapacity updates a class's capacity limit and warning threshold.
// The class is re-evaluated immediately, so lowering the limit below the
// current roster raises an alert in the same request.
func (c *Controller) SetClassCapacity(ctx echo.Context) error {
	classID := ctx.Param("id")
	if err := c.checkClassTenant(ctx, classID); err != nil {
		return c.classError(ctx, err, "Failed to set class capacity")
	}

	var body struct {
		MaxCapacity             *int `json:"max_capacity"`
		WarningThresholdPercent int  `json:"warning_threshold_percent"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if body.WarningThresholdPercent == 0 {
		body.WarningThresholdPercent = c.defaultWarnPercent
	}

	state, err := c.monitor.SetClassCapacity(ctx.Request().Context(), classID, body.MaxCapacity, body.WarningThresholdPercent)
	if err != nil {
		if errors.Is(err, repository.ErrClassNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Class not found"})
		}
		// Monitor validation failures are client errors.
		if body.MaxCapacity != nil && *body.MaxCapacity < 0 ||
			body.WarningThresholdPercent < 0 || body.WarningThresholdPercent > 100 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		c.log.Error("failed to set class capacity", zap.String("class_id", classID), zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to set class capacity"})
	}

	if c.bus != nil {
		c.bus.Publish(&alerting.Event{
			Name:       alerting.EventCapacityChanged,
			TenantID:   tenantID(ctx),
			EntityType: alerting.EntityTypeClass,
			EntityID:   classID,
		})
	}

	return ctx.JSON(http.StatusOK, capacityStatePayload(classID, state))
}

// EnrollmentChanged is the hook enrollment services call after a roster
// change. The class is re-evaluated synchronously and the event is published
// so realtime rules fire too.
func (c *Controller) EnrollmentChanged(ctx echo.Context) error {
	classID := ctx.Param("id")
	if err := c.checkClassTenant(ctx, classID); err != nil {
		return c.classError(ctx, err, "Failed to handle enrollment change")
	}

	state, err := c.monitor.HandleEnrollmentChange(ctx.Request().Context(), classID)
	if err != nil {
		return c.classError(ctx, err, "Failed to handle enrollment change")
	}

	if c.bus != nil {
		c.bus.Publish(&alerting.Event{
			Name:       alerting.EventEnrollmentChanged,
			TenantID:   tenantID(ctx),
			EntityType: alerting.EntityTypeClass,
			EntityID:   classID,
		})
	}

	return ctx.JSON(http.StatusOK, capacityStatePayload(classID, state))
}

// checkClassTenant verifies the class exists and belongs to the caller's
// tenant. Foreign classes look like missing ones.
func (c *Controller) checkClassTenant(ctx echo.Context, classID string) error {
	class, err := c.classes.GetClass(ctx.Request().Context(), classID)
	if err != nil {
		return err
	}
	if class.TenantID != tenantID(ctx) {
		return repository.ErrClassNotFound
	}
	return nil
}

// capacityStatePayload renders a classification for API responses.
func capacityStatePayload(classID string, state capacity.State) map[string]any {
	payload := map[string]any{
		"class_id":            classID,
		"level":               state.Level.String(),
		"current_enrollments": state.Current,
		"max_capacity":        state.MaxCapacity,
	}
	if !state.Unlimited() {
		payload["percentage"] = state.Percent
		payload["seats_left"] = state.SeatsLeft
	}
	return payload
}

func (c *Controller) classError(ctx echo.Context, err error, fallback string) error {
	if errors.Is(err, repository.ErrClassNotFound) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Class not found"})
	}
	c.log.Error(fallback, zap.Error(err))
	return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": fallback})
}
