package device

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ContactRecorder receives every contact and connectivity change, typically
// to write it to a time-series store.
type ContactRecorder interface {
	WriteDeviceContact(uid string, deviceID int64, connected bool)
}

type noopContacts struct{}

func (noopContacts) WriteDeviceContact(string, int64, bool) {}

// SetContactRecorder sets where contacts are recorded.
func (r *Registry) SetContactRecorder(c ContactRecorder) {
	if c == nil {
		c = noopContacts{}
	}
	r.contacts = c
}

// SetHeartbeatGrace sets how many heartbeat intervals may pass before a
// device is considered disconnected.
func (r *Registry) SetHeartbeatGrace(grace float64) {
	if grace > 0 {
		r.grace = grace
	}
}

// RecordContact marks the device paired under uid as connected at the given time.
// A device coming back from disconnected is published; the change is not persisted.
func (r *Registry) RecordContact(ctx context.Context, uid string, at time.Time) error {
	d, err := r.GetByUID(uid)
	if err != nil {
		return err
	}

	reconnected := d.markContact(at)
	r.contacts.WriteDeviceContact(uid, d.ID(), true)

	if reconnected {
		r.svc.logger().Info("device connected", "id", d.ID(), "uid", uid)
		if err := d.PublishDevice(ctx); err != nil {
			r.svc.logger().Warn("device update not published", "id", d.ID(), "error", err)
		}
	}
	return nil
}

// CheckHeartbeats disconnects every device whose last contact is older than
// its heartbeat rate times the grace factor. It returns how many flipped.
func (r *Registry) CheckHeartbeats(ctx context.Context, now time.Time) int {
	flipped := 0
	for _, d := range r.List() {
		if !d.expireContact(now, r.grace) {
			continue
		}
		flipped++
		r.contacts.WriteDeviceContact(d.UID(), d.ID(), false)
		r.svc.logger().Warn("device heartbeat missed", "id", d.ID(), "uid", d.UID(), "last_contact", d.LastContact())
		if err := d.PublishDevice(ctx); err != nil {
			r.svc.logger().Warn("device update not published", "id", d.ID(), "error", err)
		}
	}
	return flipped
}

// RunHeartbeatMonitor checks heartbeats every interval until ctx is cancelled.
func (r *Registry) RunHeartbeatMonitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.CheckHeartbeats(ctx, r.now())
		}
	}
}

// HandleHeartbeat adapts an MQTT heartbeat on .../device/{uid}/heartbeat.
func (r *Registry) HandleHeartbeat(topic string, _ []byte) error {
	uid, ok := uidFromHeartbeatTopic(topic)
	if !ok {
		return fmt.Errorf("unexpected heartbeat topic %q", topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := r.RecordContact(ctx, uid, r.now()); err != nil {
		return fmt.Errorf("heartbeat from %s: %w", uid, err)
	}
	return nil
}

func uidFromHeartbeatTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	n := len(parts)
	if n < 3 || parts[n-1] != "heartbeat" || parts[n-3] != "device" || parts[n-2] == "" {
		return "", false
	}
	return parts[n-2], true
}

// expireContact disconnects the device if its heartbeat is overdue.
func (d *Device) expireContact(now time.Time, grace float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected || d.heartbeatRate <= 0 {
		return false
	}
	window := time.Duration(float64(d.heartbeatRate) * grace * float64(time.Second))
	if now.Sub(d.lastContact) <= window {
		return false
	}
	d.connected = false
	return true
}
