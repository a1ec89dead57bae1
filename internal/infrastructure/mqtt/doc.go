// Package mqtt connects the device service to the Gray Logic message bus.
//
// This package manages:
//   - Connection to the broker with auto-reconnect and a Last Will
//   - Publishing with QoS guarantees, including namespaced device events
//   - Subscriptions with wildcard support, restored after reconnects
//   - Topic builders for the device hierarchy
//
// # Topics
//
//	graylogic/device/updated           device snapshots after every change
//	graylogic/device/pairing/start     pairing broadcasts
//	graylogic/device/pairing/reply     satellites answering a broadcast
//	graylogic/device/{uid}/heartbeat   liveness from each device
//	graylogic/system/status            retained online/offline status
//
// # Usage
//
//	client, err := mqtt.Connect(ctx, cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllDeviceHeartbeats(), 1, registry.HandleHeartbeat)
//
//	// "device/updated" goes out as graylogic/device/updated
//	err = client.Notify(ctx, "device/updated", payload)
//
// TLS should be enabled outside development (cfg.Broker.TLS).
package mqtt
