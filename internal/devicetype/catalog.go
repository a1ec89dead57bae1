package devicetype

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-devices/internal/device"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("ability", validateAbility); err != nil {
		panic(fmt.Sprintf("devicetype: registering ability validation: %v", err))
	}
	return v
}

func validateAbility(fl validator.FieldLevel) bool {
	_, err := device.ParseAbility(fl.Field().String())
	return err == nil
}

// file is the top-level shape of a catalog file.
type file struct {
	DeviceTypes []typeSpec `yaml:"device_types"`
}

// typeSpec is one descriptor as written in YAML.
type typeSpec struct {
	Skill                  string         `yaml:"skill" validate:"required,max=100"`
	Name                   string         `yaml:"name" validate:"required,max=100"`
	Abilities              []string       `yaml:"abilities" validate:"dive,ability"`
	HeartbeatRate          int            `yaml:"heartbeat_rate" validate:"gt=0"`
	AllowHeartbeatOverride bool           `yaml:"allow_heartbeat_override"`
	ConfigTemplate         map[string]any `yaml:"config_template"`
}

func (s typeSpec) toType() (*device.Type, error) {
	abilities, err := device.ParseAbilities(s.Abilities)
	if err != nil {
		return nil, err
	}
	template := s.ConfigTemplate
	if template == nil {
		template = map[string]any{}
	}
	return &device.Type{
		Skill:                  s.Skill,
		Name:                   s.Name,
		Abilities:              device.CombineAbilities(abilities...),
		HeartbeatRate:          s.HeartbeatRate,
		AllowHeartbeatOverride: s.AllowHeartbeatOverride,
		ConfigTemplate:         template,
	}, nil
}

// Catalog holds device type descriptors keyed by (skill, name).
// All methods are safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	types map[string]*device.Type
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{types: make(map[string]*device.Type)}
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading device types %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML. Every entry is validated; the first
// problem aborts the load.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}

	c := New()
	for i, spec := range f.DeviceTypes {
		if err := validate.Struct(spec); err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s/%s): %s", ErrInvalidType, i, spec.Skill, spec.Name, describe(err))
		}
		t, err := spec.toType()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrInvalidType, i, err)
		}
		if err := c.Register(t); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a descriptor. It fails on an incomplete descriptor or a
// (skill, name) pair that is already registered.
func (c *Catalog) Register(t *device.Type) error {
	if t == nil || t.Skill == "" || t.Name == "" {
		return fmt.Errorf("%w: skill and name are required", ErrInvalidType)
	}
	if t.HeartbeatRate <= 0 {
		return fmt.Errorf("%w: %s/%s: heartbeat rate must be positive", ErrInvalidType, t.Skill, t.Name)
	}

	k := key(t.Skill, t.Name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.types[k]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateType, t.Skill, t.Name)
	}
	c.types[k] = t
	return nil
}

// Resolve implements device.TypeCatalog.
func (c *Catalog) Resolve(skill, name string) (*device.Type, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.types[key(skill, name)]
	return t, ok
}

// List returns every descriptor ordered by skill, then name.
func (c *Catalog) List() []*device.Type {
	c.mu.RLock()
	types := make([]*device.Type, 0, len(c.types))
	for _, t := range c.types {
		types = append(types, t)
	}
	c.mu.RUnlock()

	sort.Slice(types, func(i, j int) bool {
		if types[i].Skill != types[j].Skill {
			return types[i].Skill < types[j].Skill
		}
		return types[i].Name < types[j].Name
	})
	return types
}

// Len returns the number of registered descriptors.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

func key(skill, name string) string {
	return skill + "\x00" + name
}

// describe flattens validator errors into "field: tag" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
