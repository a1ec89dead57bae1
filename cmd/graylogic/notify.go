package main

import (
	"context"

	"github.com/nerrad567/gray-logic-devices/internal/device"
)

// notifyFunc adapts a publish function to device.Notifier.
type notifyFunc func(ctx context.Context, topic string, payload []byte) error

func (f notifyFunc) Publish(ctx context.Context, topic string, payload []byte) error {
	return f(ctx, topic, payload)
}

// fanoutNotifier delivers every notification to the primary transport and
// then to each mirror. Only the primary's outcome is reported; mirrors are
// local subscribers such as the WebSocket hub and cannot fail a change.
type fanoutNotifier struct {
	primary device.Notifier
	mirrors []device.Notifier
}

func newFanoutNotifier(primary device.Notifier, mirrors ...device.Notifier) *fanoutNotifier {
	return &fanoutNotifier{primary: primary, mirrors: mirrors}
}

func (f *fanoutNotifier) Publish(ctx context.Context, topic string, payload []byte) error {
	err := f.primary.Publish(ctx, topic, payload)
	for _, m := range f.mirrors {
		_ = m.Publish(ctx, topic, payload) //nolint:errcheck // mirror delivery is best-effort
	}
	return err
}
