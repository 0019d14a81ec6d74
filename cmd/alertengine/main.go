// Command alertengine runs the rule-driven alert engine service: the HTTP
// API, the evaluation scheduler, the capacity monitor, and the notification
// channels, all over one relational store.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/api"
	"github.com/edusphere/alertengine/internal/capacity"
	"github.com/edusphere/alertengine/internal/conf"
	"github.com/edusphere/alertengine/internal/datastore"
	"github.com/edusphere/alertengine/internal/datastore/repository"
	"github.com/edusphere/alertengine/internal/logger"
	"github.com/edusphere/alertengine/internal/notification"
	"github.com/edusphere/alertengine/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "alertengine",
		Short:         "Rule-driven alert engine for the education platform",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := conf.Load(configPath)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func run(ctx context.Context, cfg *conf.Config) error {
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "alertengine")
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := datastore.Open(cfg.Database)
	if err != nil {
		return err
	}
	log.Info("database ready", zap.String("driver", cfg.Database.Driver))

	ruleRepo := repository.NewAlertRuleRepository(db)
	alertRepo := repository.NewAlertInstanceRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	provider := datastore.NewSnapshotProvider(classRepo, studentRepo)

	// Notification channels. The log channel is always available; push and
	// MQTT join when configured.
	router := notification.NewRouter(log)
	router.Register(notification.NewLogSender(log))
	if len(cfg.Notification.PushURLs) > 0 {
		push, err := notification.NewPushSender(cfg.Notification.PushURLs)
		if err != nil {
			return fmt.Errorf("failed to configure push notifications: %w", err)
		}
		router.Register(push)
	}
	var mqttSender *notification.MQTTSender
	if cfg.Notification.MQTT.Enabled {
		mqttSender, err = notification.NewMQTTSender(cfg.Notification.MQTT)
		if err != nil {
			return fmt.Errorf("failed to connect MQTT channel: %w", err)
		}
		router.Register(mqttSender)
		log.Info("mqtt channel connected", zap.String("broker", cfg.Notification.MQTT.Broker))
	}

	manager := alerting.NewManager(alertRepo, router, log)
	monitor := capacity.NewMonitor(classRepo, manager, provider, nil, nil, log)

	for _, tenant := range cfg.Tenants {
		if err := alerting.SeedDefaultRules(ctx, ruleRepo, tenant, log); err != nil {
			return fmt.Errorf("failed to seed default rules for tenant %s: %w", tenant, err)
		}
	}

	sched := scheduler.New(ruleRepo, provider, manager, scheduler.Options{
		TickInterval: cfg.Scheduler.TickInterval.Std(),
		Workers:      cfg.Scheduler.Workers,
		DailyHour:    cfg.Scheduler.DailyHour,
	}, log)
	sched.Start(ctx)

	// Realtime rules ride the event bus; enrollment hooks publish into it.
	bus := alerting.NewEventBus()
	bus.Subscribe(sched.HandleEvent)
	alerting.SetGlobalBus(bus)

	go sweepLoop(ctx, monitor, cfg, log)

	e := echo.New()
	e.HideBanner = true
	api.New(e, api.Options{
		Rules:              ruleRepo,
		Alerts:             alertRepo,
		Classes:            classRepo,
		Manager:            manager,
		Scheduler:          sched,
		Monitor:            monitor,
		Bus:                bus,
		DefaultWarnPercent: cfg.Capacity.DefaultWarningThresholdPercent,
		Log:                log,
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", cfg.Server.Address))
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
	sched.Stop()
	alerting.SetGlobalBus(nil)
	bus.Stop()
	router.Wait()
	if mqttSender != nil {
		mqttSender.Close()
	}
	log.Info("shutdown complete")
	return nil
}

// sweepLoop periodically re-evaluates every capped class of every tenant to
// catch capacity drift from bulk imports and out-of-band roster edits.
func sweepLoop(ctx context.Context, monitor *capacity.Monitor, cfg *conf.Config, log *zap.Logger) {
	interval := cfg.Capacity.SweepInterval.Std()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, tenant := range cfg.Tenants {
				if err := monitor.Sweep(ctx, tenant); err != nil {
					log.Warn("capacity sweep failed",
						zap.String("tenant_id", tenant),
						zap.Error(err))
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
