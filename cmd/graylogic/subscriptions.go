package main

import (
	"fmt"

	"github.com/nerrad567/gray-logic-devices/internal/device"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devices/internal/infrastructure/mqtt"
)

// topicSubscriber is the part of the MQTT client the device topics use.
type topicSubscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	HasSubscription(topic string) bool
	SubscriptionCount() int
}

// deviceSubscriptions maps inbound device topics onto registry handlers.
func deviceSubscriptions(registry *device.Registry) map[string]mqtt.MessageHandler {
	topics := mqtt.Topics{}
	return map[string]mqtt.MessageHandler{
		topics.AllDeviceHeartbeats(): registry.HandleHeartbeat,
		topics.PairingReply():        registry.HandlePairingReply,
	}
}

// subscribeDevices subscribes every device topic. On failure the topics
// already subscribed are dropped again.
func subscribeDevices(client topicSubscriber, handlers map[string]mqtt.MessageHandler, qos byte, log *logging.Logger) error {
	for topic, handler := range handlers {
		if err := client.Subscribe(topic, qos, handler); err != nil {
			unsubscribeDevices(client, handlers, log)
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	log.Info("MQTT device topics subscribed", "subscriptions", client.SubscriptionCount())
	return nil
}

// unsubscribeDevices stops heartbeat and pairing traffic reaching the
// registry. Topics that were never subscribed are skipped.
func unsubscribeDevices(client topicSubscriber, handlers map[string]mqtt.MessageHandler, log *logging.Logger) {
	for topic := range handlers {
		if !client.HasSubscription(topic) {
			continue
		}
		if err := client.Unsubscribe(topic); err != nil {
			log.Warn("MQTT unsubscribe failed", "topic", topic, "error", err)
		}
	}
}
