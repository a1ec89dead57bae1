package device

import (
	"encoding/json"
	"fmt"
	"math"
)

// Layout keys always present in Settings.
const (
	SettingX = "x"
	SettingY = "y"
	SettingZ = "z"
	SettingW = "w"
	SettingH = "h"
	SettingR = "r"
)

// Default layout size for a new device tile.
const (
	defaultWidth  = 50
	defaultHeight = 50
)

// Settings is the UI layout layer: position, size and rotation plus any
// caller-supplied extension keys. It serialises as one flat JSON object.
type Settings struct {
	X, Y, Z, W, H, R float64

	Extra map[string]any
}

// DefaultSettings returns the layout a device gets before caller overrides.
// z stacks new devices above the deviceCount existing ones.
func DefaultSettings(deviceCount int) Settings {
	return Settings{
		Z: float64(deviceCount),
		W: defaultWidth,
		H: defaultHeight,
	}
}

// Merge applies patch over s. Keys in patch win; other keys are kept.
// Layout keys must be numeric; on error s is left unchanged.
func (s *Settings) Merge(patch map[string]any) error {
	next := s.clone()
	for k, v := range patch {
		field := next.layoutField(k)
		if field == nil {
			if next.Extra == nil {
				next.Extra = make(map[string]any)
			}
			next.Extra[k] = deepCopyValue(v)
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("%w: %s must be numeric, got %T", ErrInvalidSettings, k, v)
		}
		*field = f
	}
	*s = next
	return nil
}

// Map returns the flattened settings.
func (s Settings) Map() map[string]any {
	m := make(map[string]any, len(s.Extra)+6)
	for k, v := range s.Extra {
		m[k] = deepCopyValue(v)
	}
	m[SettingX] = s.X
	m[SettingY] = s.Y
	m[SettingZ] = s.Z
	m[SettingW] = s.W
	m[SettingH] = s.H
	m[SettingR] = s.R
	return m
}

// MarshalJSON implements json.Marshaler.
func (s Settings) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

// UnmarshalJSON implements json.Unmarshaler. Missing layout keys decode as zero.
func (s *Settings) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out Settings
	if err := out.Merge(m); err != nil {
		return err
	}
	*s = out
	return nil
}

func (s *Settings) layoutField(key string) *float64 {
	switch key {
	case SettingX:
		return &s.X
	case SettingY:
		return &s.Y
	case SettingZ:
		return &s.Z
	case SettingW:
		return &s.W
	case SettingH:
		return &s.H
	case SettingR:
		return &s.R
	}
	return nil
}

func (s Settings) clone() Settings {
	out := s
	out.Extra = nil
	if len(s.Extra) > 0 {
		out.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = deepCopyValue(v)
		}
	}
	return out
}

// Params is the free-form runtime layer. Values are not validated.
type Params map[string]any

// Get returns the value stored under key, or def when absent.
func (p Params) Get(key string, def any) any {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

func (p Params) clone() Params {
	return Params(deepCopyMap(p))
}

// Config keys every device carries.
const (
	ConfigDisplayName   = "displayName"
	ConfigHeartbeatRate = "heartbeatRate"
)

// Configs is the validated configuration layer seeded from the type's template.
type Configs map[string]any

// HeartbeatRate returns the configured heartbeat rate in seconds, if numeric.
func (c Configs) HeartbeatRate() (int, bool) {
	f, ok := toFloat(c[ConfigHeartbeatRate])
	if !ok {
		return 0, false
	}
	return int(math.Round(f)), true
}

// DisplayName returns the configured display name, if set.
func (c Configs) DisplayName() (string, bool) {
	s, ok := c[ConfigDisplayName].(string)
	return s, ok
}

func (c Configs) setDefault(key string, v any) {
	if _, ok := c[key]; !ok {
		c[key] = v
	}
}

func (c Configs) clone() Configs {
	return Configs(deepCopyMap(c))
}

// toFloat accepts every numeric form a value can take after JSON decoding
// or direct construction.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
