// Package notification fans freshly generated alerts out to their configured
// channels: structured log lines, push services, and MQTT.
package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// sendTimeout bounds one delivery attempt per channel.
const sendTimeout = 10 * time.Second

// Sender delivers one alert over one channel. targetRoles lists the staff
// roles the rule addresses; senders that cannot route per role may ignore it.
type Sender interface {
	// Name is the channel identifier rules reference ("log", "push", "mqtt").
	Name() string
	Send(ctx context.Context, alert *entities.AlertInstance, targetRoles []string) error
}

// Router fans alerts out to registered channel senders. Delivery is
// asynchronous and best-effort: a failing channel is logged and counted,
// never retried, and never blocks alert generation.
type Router struct {
	senders map[string]Sender
	mu      sync.RWMutex
	wg      sync.WaitGroup
	log     *zap.Logger
}

// NewRouter creates an empty router. Register senders before use.
func NewRouter(log *zap.Logger) *Router {
	return &Router{
		senders: make(map[string]Sender),
		log:     log,
	}
}

// Register adds a channel sender. Registering the same name twice replaces
// the earlier sender.
func (r *Router) Register(sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[sender.Name()] = sender
}

// Notify dispatches an alert to each requested channel in its own goroutine.
// Unknown channel names are logged and skipped.
func (r *Router) Notify(_ context.Context, alert *entities.AlertInstance, channels, targetRoles []string) {
	for _, channel := range channels {
		r.mu.RLock()
		sender, ok := r.senders[channel]
		r.mu.RUnlock()
		if !ok {
			r.log.Warn("no sender registered for channel",
				zap.String("channel", channel),
				zap.String("alert_id", alert.ID))
			continue
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()
			if err := sender.Send(sendCtx, alert, targetRoles); err != nil {
				r.log.Error("notification delivery failed",
					zap.String("channel", sender.Name()),
					zap.String("alert_id", alert.ID),
					zap.Error(err))
				return
			}
			alerting.NotificationsTotal.WithLabelValues(sender.Name()).Inc()
		}()
	}
}

// Wait blocks until all in-flight deliveries finish. Used in shutdown and tests.
func (r *Router) Wait() {
	r.wg.Wait()
}
