package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Defaults applied by NewRegistry.
const (
	DefaultPairingTimeout = 2 * time.Minute
	DefaultHeartbeatGrace = 2.0
)

// Registry owns every live Device by identity and keeps the device links.
//
// Devices are loaded on startup via Load and kept in sync by Create and
// Delete. Create holds the registry lock while it counts devices and runs
// the insert, so every new device gets a distinct default z order.
//
// All public methods are thread-safe.
type Registry struct {
	repo  Repository
	links LinkRepository
	svc   *Services

	mu      sync.RWMutex
	devices map[int64]*Device

	linkMu   sync.RWMutex
	linkList []Link

	pairMu         sync.Mutex
	sessions       map[string]pairingSession
	pairingTimeout time.Duration

	contacts ContactRecorder
	grace    float64
	now      func() time.Time
}

// NewRegistry creates a device registry backed by repo and links.
// The registry itself serves as the devices' link source and pairing broadcaster.
func NewRegistry(repo Repository, links LinkRepository, types TypeCatalog) *Registry {
	r := &Registry{
		repo:           repo,
		links:          links,
		devices:        make(map[int64]*Device),
		sessions:       make(map[string]pairingSession),
		pairingTimeout: DefaultPairingTimeout,
		contacts:       noopContacts{},
		grace:          DefaultHeartbeatGrace,
		now:            time.Now,
	}
	r.svc = &Services{
		Types:   types,
		Store:   repo,
		Links:   r,
		Pairing: r,
	}
	return r
}

// SetLogger sets the logger for the registry and the devices it owns.
// Setters must be called before Load.
func (r *Registry) SetLogger(logger Logger) {
	r.svc.Logger = logger
}

// SetNotifier sets the sink for device updates and pairing broadcasts.
func (r *Registry) SetNotifier(n Notifier) {
	r.svc.Notifier = n
}

// SetLocations sets the location resolver used by Device.Location.
func (r *Registry) SetLocations(l LocationLookup) {
	r.svc.Locations = l
}

// SetMetrics sets the recorder for persistence and notification outcomes.
func (r *Registry) SetMetrics(m Recorder) {
	r.svc.Metrics = m
}

// SetIconRoot sets the directory icon paths are resolved under.
func (r *Registry) SetIconRoot(root string) {
	r.svc.IconRoot = root
}

// Load reconstitutes every stored device and link, replacing the current set.
// Records that no longer resolve to a type, or cannot be decoded, are skipped
// with an error log; the rest still load.
func (r *Registry) Load(ctx context.Context) error {
	records, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	links, err := r.links.ListLinks(ctx)
	if err != nil {
		return fmt.Errorf("loading device links: %w", err)
	}

	log := r.svc.logger()

	r.mu.Lock()
	devices := make(map[int64]*Device, len(records))
	skipped := 0
	for _, rec := range records {
		d, err := Load(ctx, r.svc, rec, len(devices))
		if err != nil {
			skipped++
			log.Error("skipping stored device", "id", rec.ID, "type", rec.TypeName, "skill", rec.SkillName, "error", err)
			continue
		}
		devices[d.ID()] = d
	}
	r.devices = devices
	count := len(devices)
	r.mu.Unlock()

	r.linkMu.Lock()
	r.linkList = links
	r.linkMu.Unlock()

	r.svc.metrics().ObserveDeviceCount(count)
	log.Info("devices loaded", "count", count, "skipped", skipped, "links", len(links))
	return nil
}

// Create builds and inserts a new device. Its default z order is the number
// of devices that exist at the moment of creation.
func (r *Registry) Create(ctx context.Context, f Fields) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, err := New(ctx, r.svc, f, len(r.devices))
	if err != nil {
		return nil, err
	}
	r.devices[d.ID()] = d
	r.svc.metrics().ObserveDeviceCount(len(r.devices))
	return d, nil
}

// Get returns the live device with the given identity.
func (r *Registry) Get(id int64) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

// GetByUID returns the live device paired under uid.
// An empty uid never matches.
func (r *Registry) GetByUID(uid string) (*Device, error) {
	if uid == "" {
		return nil, ErrDeviceNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, d := range r.devices {
		if d.UID() == uid {
			return d, nil
		}
	}
	return nil, ErrDeviceNotFound
}

// List returns all live devices ordered by identity.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	devices := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	r.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID() < devices[j].ID() })
	return devices
}

// Count returns the number of live devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Delete removes a device and the links that reference it.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	if err := r.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrDeviceNotFound) {
		return fmt.Errorf("%w: deleting device %d: %w", ErrPersistence, id, err)
	}
	d.markDeleted()
	delete(r.devices, id)
	r.svc.metrics().ObserveDeviceCount(len(r.devices))

	r.linkMu.Lock()
	kept := r.linkList[:0]
	for _, l := range r.linkList {
		if l.DeviceID != id {
			kept = append(kept, l)
		}
	}
	r.linkList = kept
	r.linkMu.Unlock()

	r.svc.logger().Info("device deleted", "id", id)
	return nil
}

// DeviceLinks returns a copy of every known link.
func (r *Registry) DeviceLinks() []Link {
	r.linkMu.RLock()
	defer r.linkMu.RUnlock()

	links := make([]Link, len(r.linkList))
	copy(links, r.linkList)
	return links
}

// AddLink ties a device to a location other than its parent.
func (r *Registry) AddLink(ctx context.Context, deviceID, targetLocation int64) (Link, error) {
	if _, err := r.Get(deviceID); err != nil {
		return Link{}, err
	}

	link := Link{DeviceID: deviceID, TargetLocation: targetLocation}
	if err := r.links.CreateLink(ctx, &link); err != nil {
		return Link{}, err
	}

	r.linkMu.Lock()
	r.linkList = append(r.linkList, link)
	r.linkMu.Unlock()

	r.svc.logger().Info("device link created", "id", link.ID, "device_id", deviceID, "target_location", targetLocation)
	return link, nil
}

// RemoveLink deletes a link by ID.
func (r *Registry) RemoveLink(ctx context.Context, id int64) error {
	if err := r.links.DeleteLink(ctx, id); err != nil {
		return err
	}

	r.linkMu.Lock()
	for i, l := range r.linkList {
		if l.ID == id {
			r.linkList = append(r.linkList[:i], r.linkList[i+1:]...)
			break
		}
	}
	r.linkMu.Unlock()
	return nil
}
