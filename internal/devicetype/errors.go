package devicetype

import "errors"

// Domain errors for the devicetype package.
var (
	// ErrInvalidCatalog is returned when the catalog file cannot be parsed.
	ErrInvalidCatalog = errors.New("devicetype: invalid catalog")

	// ErrInvalidType is returned when a type descriptor fails validation.
	ErrInvalidType = errors.New("devicetype: invalid type")

	// ErrDuplicateType is returned when a (skill, name) pair is registered twice.
	ErrDuplicateType = errors.New("devicetype: duplicate type")
)
