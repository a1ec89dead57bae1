package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by this package.
const (
	MeasurementDeviceContact = "device_contact"
)

// WriteDeviceContact records a heartbeat or connectivity flip for a device.
// It satisfies device.ContactRecorder. Writes on a closed client are dropped.
func (c *Client) WriteDeviceContact(uid string, deviceID int64, connected bool) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(contactPoint(uid, deviceID, connected, time.Now()))
}

// contactPoint tags by uid; the numeric id and state are fields to keep
// series cardinality bounded by the number of paired devices.
func contactPoint(uid string, deviceID int64, connected bool, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementDeviceContact,
		map[string]string{"uid": uid},
		map[string]any{
			"device_id": deviceID,
			"connected": connected,
		},
		at,
	)
}
