package notification

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/edusphere/alertengine/internal/alerting"
	"github.com/edusphere/alertengine/internal/conf"
	"github.com/edusphere/alertengine/internal/datastore/entities"
)

// MQTTSender publishes alerts to a broker so the platform's other services
// (dashboards, SIS sync jobs) can react to them. Topics are
// "<prefix>/<tenant_id>/<severity>".
type MQTTSender struct {
	client      mqtt.Client
	topicPrefix string
}

// NewMQTTSender connects to the broker and returns the mqtt channel sender.
func NewMQTTSender(cfg conf.MQTTConfig) (*MQTTSender, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	prefix := cfg.TopicPrefix
	if prefix == "" {
		prefix = "alerts"
	}
	return &MQTTSender{client: client, topicPrefix: prefix}, nil
}

// Name implements Sender.
func (s *MQTTSender) Name() string {
	return alerting.ChannelMQTT
}

// Send implements Sender. Publishes the alert as JSON at QoS 1. The target
// roles ride along in the payload so subscribers can fan out per role.
func (s *MQTTSender) Send(_ context.Context, alert *entities.AlertInstance, targetRoles []string) error {
	if targetRoles == nil {
		targetRoles = []string{}
	}
	payload, err := json.Marshal(struct {
		*entities.AlertInstance
		TargetRoles []string `json:"target_roles"`
	}{alert, targetRoles})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/%s", s.topicPrefix, alert.TenantID, alert.Severity)
	token := s.client.Publish(topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (s *MQTTSender) Close() {
	s.client.Disconnect(250)
}
