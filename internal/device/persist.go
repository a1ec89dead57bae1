package device

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Persist operation labels reported to the Recorder.
const (
	opInsert  = "insert"
	opReplace = "replace"
)

// Save writes the device through the update path and notifies observers.
// It fails with ErrNotPersisted if the device never went through New.
func (d *Device) Save(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updateLocked(ctx)
}

// PublishDevice sends the current view on TopicUpdated.
// A notification failure is returned but leaves state untouched.
func (d *Device) PublishDevice(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.publishLocked(ctx)
}

// Record returns the durable snapshot of the device.
func (d *Device) Record() (Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recordLocked()
}

// create is the first-insert path: assign identity, no notification.
func (d *Device) create(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, err := d.recordLocked()
	if err != nil {
		return err
	}

	start := time.Now()
	id, err := d.svc.Store.Insert(ctx, rec)
	d.svc.metrics().ObservePersist(opInsert, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: inserting device: %w", ErrPersistence, err)
	}

	d.id = id
	d.svc.logger().Info("device created", "id", id, "type", d.typeName, "skill", d.skillName)
	return nil
}

// markDeleted detaches the device from the store.
func (d *Device) markDeleted() {
	d.mu.Lock()
	d.deleted = true
	d.mu.Unlock()
}

// updateLocked replaces the stored row and then notifies. A failed notification
// is logged, not returned: the change is already durable.
func (d *Device) updateLocked(ctx context.Context) error {
	if d.id == Unassigned {
		return ErrNotPersisted
	}
	if d.deleted {
		return fmt.Errorf("%w: device %d was deleted", ErrDeviceNotFound, d.id)
	}

	rec, err := d.recordLocked()
	if err != nil {
		return err
	}

	start := time.Now()
	err = d.svc.Store.Replace(ctx, rec)
	d.svc.metrics().ObservePersist(opReplace, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: replacing device %d: %w", ErrPersistence, d.id, err)
	}

	if err := d.publishLocked(ctx); err != nil {
		d.svc.logger().Warn("device update not published", "id", d.id, "error", err)
	}
	return nil
}

func (d *Device) publishLocked(ctx context.Context) error {
	if d.svc.Notifier == nil {
		return nil
	}

	payload, err := json.Marshal(Update{UID: d.uid, Device: d.viewLocked()})
	if err != nil {
		return fmt.Errorf("%w: encoding view: %w", ErrNotification, err)
	}

	err = d.svc.Notifier.Publish(ctx, TopicUpdated, payload)
	d.svc.metrics().ObserveNotify(TopicUpdated, err)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotification, err)
	}
	return nil
}

func (d *Device) recordLocked() (Record, error) {
	settings, err := json.Marshal(d.settings)
	if err != nil {
		return Record{}, fmt.Errorf("marshalling settings: %w", err)
	}
	params, err := json.Marshal(d.params)
	if err != nil {
		return Record{}, fmt.Errorf("marshalling device params: %w", err)
	}
	configs, err := json.Marshal(d.configs)
	if err != nil {
		return Record{}, fmt.Errorf("marshalling device configs: %w", err)
	}

	return Record{
		ID:             d.id,
		UID:            d.uid,
		ParentLocation: d.parentLocation,
		TypeName:       d.typeName,
		SkillName:      d.skillName,
		Settings:       string(settings),
		DisplayName:    d.displayName,
		Params:         string(params),
		Configs:        string(configs),
	}, nil
}
