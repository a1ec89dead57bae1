package device

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Ability is a bitmask of discrete device features.
// A single flag is one bit; a set of abilities is the OR of its flags.
type Ability uint32

// Ability flags.
const (
	AbilityIsCore Ability = 1 << iota
	AbilityIsSatellite
	AbilityPlaySound
	AbilityCaptureSound
	AbilityDisplay
	AbilityAlert
	AbilityNotify
	AbilityPhysicalUserInput
	AbilitySwitch
	AbilityDim
)

// AbilityNone is the empty set.
const AbilityNone Ability = 0

var abilityNames = map[string]Ability{
	"is_core":             AbilityIsCore,
	"is_satellite":        AbilityIsSatellite,
	"play_sound":          AbilityPlaySound,
	"capture_sound":       AbilityCaptureSound,
	"display":             AbilityDisplay,
	"alert":               AbilityAlert,
	"notify":              AbilityNotify,
	"physical_user_input": AbilityPhysicalUserInput,
	"switch":              AbilitySwitch,
	"dim":                 AbilityDim,
}

// CombineAbilities folds a list of flags into one mask.
func CombineAbilities(abilities ...Ability) Ability {
	var mask Ability
	for _, a := range abilities {
		mask |= a
	}
	return mask
}

// Has reports whether every bit of required is present in a.
func (a Ability) Has(required Ability) bool {
	return a&required == required
}

// String renders the mask as a binary literal, e.g. "0b11".
func (a Ability) String() string {
	return "0b" + strconv.FormatUint(uint64(a), 2)
}

// Names returns the sorted names of the flags set in a.
func (a Ability) Names() []string {
	var names []string
	for name, flag := range abilityNames {
		if a&flag != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ParseAbility resolves an ability name such as "dim".
func ParseAbility(name string) (Ability, error) {
	a, ok := abilityNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return AbilityNone, fmt.Errorf("%w: %q", ErrUnknownAbility, name)
	}
	return a, nil
}

// ParseAbilities resolves a list of ability names.
func ParseAbilities(names []string) ([]Ability, error) {
	out := make([]Ability, 0, len(names))
	for _, n := range names {
		a, err := ParseAbility(n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
