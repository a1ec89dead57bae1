package mqtt

import "strings"

// Namespace is the root of every Gray Logic topic on the broker.
const Namespace = "graylogic"

// Topic prefixes below the namespace.
const (
	// TopicPrefixDevice is the base for device topics.
	TopicPrefixDevice = Namespace + "/device"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = Namespace + "/system"
)

// Topics provides builders for Gray Logic MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.DeviceHeartbeat("a1b2")
//	// Returns: "graylogic/device/a1b2/heartbeat"
type Topics struct{}

// Namespaced places an application topic such as "device/updated" under
// the Gray Logic namespace. Leading slashes are dropped.
func (Topics) Namespaced(topic string) string {
	return Namespace + "/" + strings.TrimLeft(topic, "/")
}

// DeviceUpdated returns the topic devices are published on after a change.
//
// Example: graylogic/device/updated
func (Topics) DeviceUpdated() string {
	return TopicPrefixDevice + "/updated"
}

// PairingStart returns the topic pairing requests are broadcast on.
//
// Example: graylogic/device/pairing/start
func (Topics) PairingStart() string {
	return TopicPrefixDevice + "/pairing/start"
}

// PairingReply returns the topic satellites answer pairing requests on.
//
// Example: graylogic/device/pairing/reply
func (Topics) PairingReply() string {
	return TopicPrefixDevice + "/pairing/reply"
}

// DeviceHeartbeat returns the heartbeat topic for one device.
//
// Example: graylogic/device/a1b2/heartbeat
func (Topics) DeviceHeartbeat(uid string) string {
	return TopicPrefixDevice + "/" + uid + "/heartbeat"
}

// AllDeviceHeartbeats matches the heartbeat of every device.
func (Topics) AllDeviceHeartbeats() string {
	return TopicPrefixDevice + "/+/heartbeat"
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: graylogic/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
