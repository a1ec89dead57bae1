package location

import "errors"

var (
	// ErrLocationNotFound is returned when a location ID does not exist.
	ErrLocationNotFound = errors.New("location: not found")

	// ErrInvalidLocation is returned when a location fails validation.
	ErrInvalidLocation = errors.New("location: invalid location")

	// ErrInvalidName is returned when a location name is empty or too long.
	ErrInvalidName = errors.New("location: invalid name")

	// ErrInvalidSettings is returned when settings exceed size limits.
	ErrInvalidSettings = errors.New("location: invalid settings")

	// ErrLocationHasChildren is returned when deleting a location other locations sit in.
	ErrLocationHasChildren = errors.New("location: has child locations")
)
