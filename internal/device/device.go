package device

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/location"
)

// Device is a paired or unpaired smart-home device with three state layers:
// settings (UI layout), params (free-form runtime values) and configs
// (validated configuration).
//
// All methods are safe for concurrent use. Every mutation that persists holds
// the device lock across mutate, persist and notify.
type Device struct {
	mu sync.Mutex

	id             int64
	uid            string
	typeName       string
	skillName      string
	parentLocation int64
	displayName    string

	// abilities is meaningful only when overridden is true.
	abilities  Ability
	overridden bool

	settings Settings
	params   Params
	configs  Configs

	connected     bool
	lastContact   time.Time
	heartbeatRate int

	// deleted is set once the registry removes the device; the update
	// path refuses to write it back.
	deleted bool

	deviceType *Type
	svc        *Services
}

// New builds a brand-new device and inserts it, assigning its identity.
// The insert does not notify. deviceCount is the number of devices that exist
// at creation time and becomes the default z order.
func New(ctx context.Context, svc *Services, f Fields, deviceCount int) (*Device, error) {
	d, err := build(svc, f, deviceCount)
	if err != nil {
		return nil, err
	}
	if err := d.create(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Load reconstitutes a device from a stored record. Nothing is written unless
// the record has no identity, in which case it takes the create path.
func Load(ctx context.Context, svc *Services, rec Record, deviceCount int) (*Device, error) {
	f := Fields{
		UID:            rec.UID,
		TypeName:       rec.TypeName,
		SkillName:      rec.SkillName,
		ParentLocation: rec.ParentLocation,
		DisplayName:    rec.DisplayName,
	}
	var err error
	if f.Settings, err = decodeColumn("settings", rec.Settings); err != nil {
		return nil, err
	}
	if f.Params, err = decodeColumn("device_params", rec.Params); err != nil {
		return nil, err
	}
	if f.Configs, err = decodeColumn("device_configs", rec.Configs); err != nil {
		return nil, err
	}

	if rec.ID == Unassigned {
		return New(ctx, svc, f, deviceCount)
	}

	d, err := build(svc, f, deviceCount)
	if err != nil {
		return nil, err
	}
	d.id = rec.ID
	return d, nil
}

func decodeColumn(name, text string) (map[string]any, error) {
	if text == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidRecord, name, err)
	}
	return m, nil
}

// build resolves the type and normalises the three state layers.
func build(svc *Services, f Fields, deviceCount int) (*Device, error) {
	typ, ok := svc.Types.Resolve(f.SkillName, f.TypeName)
	if !ok {
		svc.logger().Error("failed retrieving device type", "type", f.TypeName, "skill", f.SkillName)
		return nil, &TypeUndefinedError{Skill: f.SkillName, Type: f.TypeName}
	}

	d := &Device{
		id:             Unassigned,
		uid:            f.UID,
		typeName:       f.TypeName,
		skillName:      f.SkillName,
		parentLocation: f.ParentLocation,
		displayName:    f.DisplayName,
		params:         Params(deepCopyMap(f.Params)),
		settings:       DefaultSettings(deviceCount),
		deviceType:     typ,
		svc:            svc,
	}

	if len(f.Abilities) > 0 {
		d.setAbilities(f.Abilities)
	}

	if err := d.settings.Merge(f.Settings); err != nil {
		return nil, err
	}

	if d.displayName == "" {
		d.displayName = d.typeName
	}

	d.configs = Configs(deepCopyMap(typ.ConfigTemplate))
	for k, v := range f.Configs {
		d.configs[k] = deepCopyValue(v)
	}

	d.heartbeatRate = typ.HeartbeatRate
	if rate, ok := d.configs.HeartbeatRate(); ok {
		d.heartbeatRate = rate
	}
	d.configs.setDefault(ConfigDisplayName, d.displayName)
	// The stored rate always matches the cached one, so a non-numeric
	// value is replaced by the type's rate.
	d.configs[ConfigHeartbeatRate] = d.heartbeatRate

	return d, nil
}

// ID returns the store-assigned identity, or Unassigned.
func (d *Device) ID() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.id
}

// UID returns the pairing identifier; empty while unpaired.
func (d *Device) UID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uid
}

// Paired reports whether pairing has completed.
func (d *Device) Paired() bool {
	return d.UID() != ""
}

// TypeName returns the device's type name.
func (d *Device) TypeName() string { return d.typeName }

// SkillName returns the skill that declares the device's type.
func (d *Device) SkillName() string { return d.skillName }

// Type returns the resolved type descriptor.
func (d *Device) Type() *Type { return d.deviceType }

// ParentLocation returns the id of the location the device sits in.
func (d *Device) ParentLocation() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.parentLocation
}

// DisplayName returns the human-facing name.
func (d *Device) DisplayName() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.displayName
}

// HeartbeatRate returns the effective heartbeat interval in seconds.
func (d *Device) HeartbeatRate() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.heartbeatRate
}

// Connected reports the live link state.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// SetConnected updates the live link state. It is not persisted.
func (d *Device) SetConnected(connected bool) {
	d.mu.Lock()
	d.connected = connected
	d.mu.Unlock()
}

// LastContact returns when the device was last heard from; zero if never.
func (d *Device) LastContact() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastContact
}

// markContact stamps a contact and reports whether the device was disconnected before.
func (d *Device) markContact(at time.Time) (reconnected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reconnected = !d.connected
	d.connected = true
	d.lastContact = at
	return reconnected
}

// SetAbilities replaces the type's abilities with the OR of the given flags.
// The override is not checked against the type's own abilities.
func (d *Device) SetAbilities(abilities ...Ability) {
	d.mu.Lock()
	d.setAbilities(abilities)
	d.mu.Unlock()
}

// ClearAbilities drops any override so the type's abilities apply again.
func (d *Device) ClearAbilities() {
	d.mu.Lock()
	d.abilities = 0
	d.overridden = false
	d.mu.Unlock()
}

func (d *Device) setAbilities(abilities []Ability) {
	d.abilities = CombineAbilities(abilities...)
	d.overridden = true
}

// Abilities returns the effective ability mask.
func (d *Device) Abilities() Ability {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.effectiveAbilities()
}

func (d *Device) effectiveAbilities() Ability {
	if d.overridden {
		return d.abilities
	}
	return d.deviceType.Abilities
}

// HasAbilities reports whether the effective mask carries every flag in required.
func (d *Device) HasAbilities(required ...Ability) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.overridden {
		return d.deviceType.HasAbilities(required...)
	}
	return d.abilities.Has(CombineAbilities(required...))
}

// Settings returns a copy of the layout layer.
func (d *Device) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings.clone()
}

// UpdateSettings shallow-merges patch into the layout layer. It does not persist;
// call Save for durability.
func (d *Device) UpdateSettings(patch map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings.Merge(patch)
}

// SaveSettings merges patch and writes the device through the update path.
// If persisting fails the previous layout is kept.
func (d *Device) SaveSettings(ctx context.Context, patch map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.settings.clone()
	if err := d.settings.Merge(patch); err != nil {
		return err
	}
	if err := d.updateLocked(ctx); err != nil {
		d.settings = prev
		return err
	}
	return nil
}

// Params returns a copy of the runtime parameter layer.
func (d *Device) Params() Params {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.params.clone()
}

// Param returns the parameter stored under key, or false when absent.
func (d *Device) Param(key string) any {
	return d.ParamOr(key, false)
}

// ParamOr returns the parameter stored under key, or def when absent.
func (d *Device) ParamOr(key string, def any) any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return deepCopyValue(d.params.Get(key, def))
}

// UpdateParams sets one parameter, persists and notifies.
// If persisting fails the previous value is restored.
func (d *Device) UpdateParams(ctx context.Context, key string, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, had := d.params[key]
	d.params[key] = deepCopyValue(value)
	if err := d.updateLocked(ctx); err != nil {
		if had {
			d.params[key] = prev
		} else {
			delete(d.params, key)
		}
		return err
	}
	return nil
}

// Configs returns a copy of the configuration layer.
func (d *Device) Configs() Configs {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configs.clone()
}

// Changes are the descriptive fields that can be edited together.
// Nil fields are left alone.
type Changes struct {
	DisplayName    *string
	ParentLocation *int64
}

// Apply sets every non-nil field, then persists and notifies once. If
// persisting fails no field changes.
func (d *Device) Apply(ctx context.Context, c Changes) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prevName, prevParent := d.displayName, d.parentLocation
	if c.DisplayName != nil {
		d.displayName = *c.DisplayName
	}
	if c.ParentLocation != nil {
		d.parentLocation = *c.ParentLocation
	}
	if err := d.updateLocked(ctx); err != nil {
		d.displayName, d.parentLocation = prevName, prevParent
		return err
	}
	return nil
}

// SetDisplayName renames the device, persists and notifies.
func (d *Device) SetDisplayName(ctx context.Context, name string) error {
	return d.Apply(ctx, Changes{DisplayName: &name})
}

// SetParentLocation moves the device, persists and notifies.
func (d *Device) SetParentLocation(ctx context.Context, locationID int64) error {
	return d.Apply(ctx, Changes{ParentLocation: &locationID})
}

// PairingDone records the uid obtained by pairing, persists and notifies.
func (d *Device) PairingDone(ctx context.Context, uid string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.uid
	d.uid = uid
	if err := d.updateLocked(ctx); err != nil {
		d.uid = prev
		return err
	}
	return nil
}

// OnUIClick starts pairing broadcast for an unpaired device. Paired devices ignore it.
func (d *Device) OnUIClick(ctx context.Context) error {
	if d.Paired() || d.svc.Pairing == nil {
		return nil
	}
	return d.svc.Pairing.StartBroadcasting(ctx, d)
}

// Location resolves the parent location. ok is false when the id is unknown.
func (d *Device) Location() (*location.Location, bool) {
	if d.svc.Locations == nil {
		return nil, false
	}
	return d.svc.Locations.Lookup(d.ParentLocation())
}

// LinkedTo reports whether a link ties this device to targetLocation.
func (d *Device) LinkedTo(targetLocation int64) bool {
	if d.svc.Links == nil {
		return false
	}
	id := d.ID()
	for _, l := range d.svc.Links.DeviceLinks() {
		if l.DeviceID == id && l.TargetLocation == targetLocation {
			return true
		}
	}
	return false
}

// IconPath returns where the type's icon is expected on disk.
func (d *Device) IconPath() string {
	return filepath.Join(d.svc.IconRoot, "skills", d.skillName, "devices", "img", d.typeName+".png")
}

// Equal reports whether two devices share the same uid.
func (d *Device) Equal(other *Device) bool {
	if d == nil || other == nil {
		return false
	}
	return d.UID() == other.UID()
}

func (d *Device) String() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("Device(%d - %s, uid(%s), Location(%d))", d.id, d.displayName, d.uid, d.parentLocation)
}
