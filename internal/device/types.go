package device

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/location"
)

// Unassigned is the identity of a device that has not been inserted yet.
const Unassigned int64 = -1

// Notification topics.
const (
	TopicUpdated      = "device/updated"
	TopicPairingStart = "device/pairing/start"
)

// Type is the immutable per-(skill, type) descriptor resolved from the catalog.
type Type struct {
	Skill                  string
	Name                   string
	Abilities              Ability
	HeartbeatRate          int
	AllowHeartbeatOverride bool

	// ConfigTemplate holds the default value of every config key the type declares.
	ConfigTemplate map[string]any
}

// HasAbilities reports whether the type's default abilities include every flag in required.
func (t *Type) HasAbilities(required ...Ability) bool {
	return t.Abilities.Has(CombineAbilities(required...))
}

// TypeCatalog resolves type descriptors.
type TypeCatalog interface {
	Resolve(skill, name string) (*Type, bool)
}

// Store is the persistence gateway used by devices.
// Insert assigns a new identity; Replace overwrites the row with the record's identity.
type Store interface {
	Insert(ctx context.Context, rec Record) (int64, error)
	Replace(ctx context.Context, rec Record) error
}

// Notifier publishes a payload to a named topic.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// LocationLookup resolves a location id. A miss is reported as ok == false.
type LocationLookup interface {
	Lookup(id int64) (*location.Location, bool)
}

// LinkSource lists the device-to-location links currently known.
type LinkSource interface {
	DeviceLinks() []Link
}

// PairingStarter begins broadcasting so an unpaired device can be discovered.
type PairingStarter interface {
	StartBroadcasting(ctx context.Context, d *Device) error
}

// Recorder receives persistence and notification outcomes.
type Recorder interface {
	ObservePersist(op string, err error, elapsed time.Duration)
	ObserveNotify(topic string, err error)
	ObserveDeviceCount(n int)
}

// Logger defines the logging interface used by the device package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopRecorder struct{}

func (noopRecorder) ObservePersist(string, error, time.Duration) {}
func (noopRecorder) ObserveNotify(string, error)                 {}
func (noopRecorder) ObserveDeviceCount(int)                      {}

// Services bundles the collaborators a Device talks to.
// Types and Store are required; the rest may be nil.
type Services struct {
	Types     TypeCatalog
	Store     Store
	Notifier  Notifier
	Locations LocationLookup
	Links     LinkSource
	Pairing   PairingStarter
	Metrics   Recorder
	Logger    Logger

	// IconRoot is the directory skills live under.
	IconRoot string
}

func (s *Services) logger() Logger {
	if s.Logger == nil {
		return noopLogger{}
	}
	return s.Logger
}

func (s *Services) metrics() Recorder {
	if s.Metrics == nil {
		return noopRecorder{}
	}
	return s.Metrics
}

// Fields are the caller-authored attributes of a brand-new device.
// A nil or empty Abilities list means the device inherits its type's abilities.
type Fields struct {
	UID            string         `json:"uid"`
	TypeName       string         `json:"type_name"`
	SkillName      string         `json:"skill_name"`
	ParentLocation int64          `json:"parent_location"`
	DisplayName    string         `json:"display_name"`
	Abilities      []Ability      `json:"-"`
	Settings       map[string]any `json:"settings"`
	Params         map[string]any `json:"device_params"`
	Configs        map[string]any `json:"device_configs"`
}

// Record is the durable row shape. Settings, Params and Configs hold JSON text.
type Record struct {
	ID             int64
	UID            string
	ParentLocation int64
	TypeName       string
	SkillName      string
	Settings       string
	DisplayName    string
	Params         string
	Configs        string
}

// Link associates a device with a location other than its parent.
type Link struct {
	ID             int64 `json:"id"`
	DeviceID       int64 `json:"device_id"`
	TargetLocation int64 `json:"target_location"`
}
