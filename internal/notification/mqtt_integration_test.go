//go:build integration

package notification_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusphere/alertengine/internal/conf"
	"github.com/edusphere/alertengine/internal/datastore/entities"
	"github.com/edusphere/alertengine/internal/notification"
	"github.com/edusphere/alertengine/internal/testutil/containers"
)

func TestMQTTSenderDelivery(t *testing.T) {
	ctx := context.Background()
	broker, err := containers.NewMosquittoContainer(ctx)
	require.NoError(t, err, "failed to start Mosquitto container")
	t.Cleanup(func() { _ = broker.Terminate(context.Background()) })

	var received atomic.Pointer[mqtt.Message]
	sub, err := broker.Subscribe("alerts/#", func(_ mqtt.Client, msg mqtt.Message) {
		received.Store(&msg)
	})
	require.NoError(t, err)
	t.Cleanup(func() { sub.Disconnect(250) })

	sender, err := notification.NewMQTTSender(conf.MQTTConfig{
		Broker:      broker.BrokerURL(),
		ClientID:    "alertengine-test",
		TopicPrefix: "alerts",
	})
	require.NoError(t, err)
	t.Cleanup(sender.Close)

	alert := &entities.AlertInstance{
		ID:       "alert-1",
		RuleCode: "capacity.full",
		TenantID: "tenant-a",
		Severity: "critical",
		Message:  "Grade 5 Math is full (25/25)",
		Status:   entities.AlertStatusActive,
	}
	require.NoError(t, sender.Send(ctx, alert, []string{"admin"}))

	require.Eventually(t, func() bool { return received.Load() != nil }, 10*time.Second, 100*time.Millisecond)
	msg := *received.Load()
	assert.Equal(t, "alerts/tenant-a/critical", msg.Topic())

	var payload struct {
		entities.AlertInstance
		TargetRoles []string `json:"target_roles"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload(), &payload))
	assert.Equal(t, "alert-1", payload.ID)
	assert.Equal(t, "Grade 5 Math is full (25/25)", payload.Message)
	assert.Equal(t, []string{"admin"}, payload.TargetRoles)
}
