// Package api exposes the alert engine over HTTP: rule management, the
// active alert feed and its lifecycle actions, and the capacity endpoints
// enrollment flows call into.
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/capacity"
	"github.com/edusphere/alertengine/internal/datastore/repository"
	"github.com/edusphere/alertengine/internal/scheduler"
)

// HeaderTenantID carries the calling tenant. The platform gateway injects it
// after authentication; every tenant-scoped endpoint requires it.
const HeaderTenantID = "X-Tenant-ID"

const tenantContextKey = "tenant_id"

// Controller wires HTTP routes to the engine subsystems.
type Controller struct {
	rules   repository.AlertRuleRepository
	alerts  repository.AlertInstanceRepository
	classes repository.ClassRepository
	manager *alerting.Manager
	sched   *scheduler.Scheduler
	monitor *capacity.Monitor
	bus     *alerting.EventBus

	// defaultWarnPercent fills in the capacity warning threshold when a
	// set-capacity request omits it.
	defaultWarnPercent int

	log *zap.Logger
}

// Options bundles the controller dependencies.
type Options struct {
	Rules              repository.AlertRuleRepository
	Alerts             repository.AlertInstanceRepository
	Classes            repository.ClassRepository
	Manager            *alerting.Manager
	Scheduler          *scheduler.Scheduler
	Monitor            *capacity.Monitor
	Bus                *alerting.EventBus
	DefaultWarnPercent int
	Log                *zap.Logger
}

// New creates the controller and registers all routes on e.
func New(e *echo.Echo, opts Options) *Controller {
	if opts.DefaultWarnPercent <= 0 {
		opts.DefaultWarnPercent = 80
	}
	c := &Controller{
		rules:              opts.Rules,
		alerts:             opts.Alerts,
		classes:            opts.Classes,
		manager:            opts.Manager,
		sched:              opts.Scheduler,
		monitor:            opts.Monitor,
		bus:                opts.Bus,
		defaultWarnPercent: opts.DefaultWarnPercent,
		log:                opts.Log,
	}
	c.registerRoutes(e)
	return c
}

func (c *Controller) registerRoutes(e *echo.Echo) {
	e.Use(middleware.Recover())

	e.GET("/healthz", c.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// The rule-building schema is tenant-independent.
	e.GET("/api/v1/alerts/schema", c.GetSchema)

	v1 := e.Group("/api/v1", c.tenantMiddleware)

	v1.GET("/rules", c.ListRules)
	v1.POST("/rules", c.CreateRule)
	v1.GET("/rules/:id", c.GetRule)
	v1.PUT("/rules/:id", c.UpdateRule)
	v1.DELETE("/rules/:id", c.DeleteRule)
	v1.PATCH("/rules/:id/toggle", c.ToggleRule)
	v1.POST("/rules/:id/run", c.RunRuleNow)
	v1.POST("/rules/test", c.TestRule)

	v1.GET("/alerts", c.ListActiveAlerts)
	v1.POST("/alerts/:id/acknowledge", c.AcknowledgeAlert)
	v1.POST("/alerts/:id/resolve", c.ResolveAlert)

	v1.GET("/classes/:id/availability", c.ClassAvailability)
	v1.PUT("/classes/:id/capacity", c.SetClassCapacity)
	v1.POST("/classes/:id/enrollment-changed", c.EnrollmentChanged)
}

// tenantMiddleware rejects requests without a tenant header and stores the
// tenant on the request context for handlers.
func (c *Controller) tenantMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		tenantID := ctx.Request().Header.Get(HeaderTenantID)
		if tenantID == "" {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Missing " + HeaderTenantID + " header"})
		}
		ctx.Set(tenantContextKey, tenantID)
		return next(ctx)
	}
}

func tenantID(ctx echo.Context) string {
	tenant, _ := ctx.Get(tenantContextKey).(string)
	return tenant
}

// Healthz reports service liveness.
func (c *Controller) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetSchema returns the rule-building catalog for the admin UI.
func (c *Controller) GetSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, alerting.GetSchema())
}

// parseUintParam parses a uint route parameter.
func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
