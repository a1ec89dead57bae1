package location

import (
	"fmt"
	"strings"
)

// Validation limits.
const (
	maxNameLength     = 100
	maxSynonyms       = 20
	maxSettingsKeys   = 50
	maxStringValueLen = 1024
	maxNestingDepth   = 10
)

// ValidateName checks if a location name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSynonyms checks the synonym list for size and empty entries.
func ValidateSynonyms(synonyms []string) error {
	if len(synonyms) > maxSynonyms {
		return fmt.Errorf("%w: more than %d synonyms", ErrInvalidLocation, maxSynonyms)
	}
	for _, s := range synonyms {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: synonyms cannot be empty", ErrInvalidLocation)
		}
		if len(s) > maxNameLength {
			return fmt.Errorf("%w: synonym exceeds %d characters", ErrInvalidLocation, maxNameLength)
		}
	}
	return nil
}

// ValidateSettings checks that a Settings map does not exceed size limits.
func ValidateSettings(s Settings) error {
	if s == nil {
		return nil
	}
	if len(s) > maxSettingsKeys {
		return fmt.Errorf("%w: settings exceeds max keys (%d)", ErrInvalidSettings, maxSettingsKeys)
	}
	return validateMapSize(map[string]any(s), "settings", 0)
}

// validateMapSize recursively checks map values against size limits.
func validateMapSize(m map[string]any, fieldName string, depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("%w: %s exceeds maximum nesting depth", ErrInvalidSettings, fieldName)
	}
	for k, v := range m {
		if len(k) > maxStringValueLen {
			return fmt.Errorf("%w: %s key too long", ErrInvalidSettings, fieldName)
		}
		if err := validateValueSize(v, fieldName, depth); err != nil {
			return err
		}
	}
	return nil
}

func validateValueSize(v any, fieldName string, depth int) error {
	switch val := v.(type) {
	case string:
		if len(val) > maxStringValueLen {
			return fmt.Errorf("%w: %s string value too long", ErrInvalidSettings, fieldName)
		}
	case map[string]any:
		if len(val) > maxSettingsKeys {
			return fmt.Errorf("%w: %s nested map too large", ErrInvalidSettings, fieldName)
		}
		return validateMapSize(val, fieldName, depth+1)
	case []any:
		if len(val) > maxSettingsKeys {
			return fmt.Errorf("%w: %s array too large", ErrInvalidSettings, fieldName)
		}
		for _, elem := range val {
			if err := validateValueSize(elem, fieldName, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateLocation validates a Location before persistence.
// A persisted location cannot be its own parent.
func ValidateLocation(l *Location) error {
	if err := ValidateName(l.Name); err != nil {
		return err
	}
	if l.ParentLocation < Root {
		return fmt.Errorf("%w: parent location %d is negative", ErrInvalidLocation, l.ParentLocation)
	}
	if l.ID != 0 && l.ParentLocation == l.ID {
		return fmt.Errorf("%w: location %d cannot be its own parent", ErrInvalidLocation, l.ID)
	}
	if err := ValidateSynonyms(l.Synonyms); err != nil {
		return err
	}
	return ValidateSettings(l.Settings)
}
