package device

import (
	"errors"
	"fmt"
)

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrTypeUndefined) {
//	    // fix the catalog before retrying
//	}
var (
	// ErrTypeUndefined is returned when the (skill, type) pair does not resolve.
	ErrTypeUndefined = errors.New("device: type undefined")

	// ErrPersistence wraps any failure of the persistence gateway.
	ErrPersistence = errors.New("device: persistence failed")

	// ErrNotification wraps any failure of the notification sink.
	ErrNotification = errors.New("device: notification failed")

	// ErrNotPersisted is returned when the update path runs on a device without identity.
	ErrNotPersisted = errors.New("device: not persisted")

	// ErrInvalidSettings is returned when a layout key carries a non-numeric value.
	ErrInvalidSettings = errors.New("device: invalid settings")

	// ErrInvalidRecord is returned when a stored record cannot be decoded.
	ErrInvalidRecord = errors.New("device: invalid record")

	// ErrUnknownAbility is returned when an ability name is not recognised.
	ErrUnknownAbility = errors.New("device: unknown ability")

	// ErrDeviceNotFound is returned when a device ID or UID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrLinkNotFound is returned when a link ID does not exist.
	ErrLinkNotFound = errors.New("device: link not found")

	// ErrLinkExists is returned when a device is already linked to the target location.
	ErrLinkExists = errors.New("device: link already exists")

	// ErrUIDRequired is returned when pairing completes without a uid.
	ErrUIDRequired = errors.New("device: uid required")

	// ErrPairingSessionNotFound is returned for an unknown or expired pairing session.
	ErrPairingSessionNotFound = errors.New("device: pairing session not found")
)

// TypeUndefinedError names the type that failed to resolve.
type TypeUndefinedError struct {
	Skill string
	Type  string
}

func (e *TypeUndefinedError) Error() string {
	return fmt.Sprintf("device: type undefined: %s (skill %s)", e.Type, e.Skill)
}

// Is makes errors.Is(err, ErrTypeUndefined) match.
func (e *TypeUndefinedError) Is(target error) bool {
	return target == ErrTypeUndefined
}
