package device

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-devices/internal/location"
)

// MockStore is a test implementation of Repository and LinkRepository.
type MockStore struct {
	mu     sync.Mutex
	rows   map[int64]Record
	links  map[int64]Link
	nextID int64
	nextLk int64

	inserts  int
	replaces int

	// For testing error paths
	insertErr  error
	replaceErr error
	listErr    error
	deleteErr  error
	linkErr    error
}

func NewMockStore() *MockStore {
	return &MockStore{
		rows:  make(map[int64]Record),
		links: make(map[int64]Link),
	}
}

func (m *MockStore) Insert(_ context.Context, rec Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.inserts++
	m.nextID++
	rec.ID = m.nextID
	m.rows[rec.ID] = rec
	return rec.ID, nil
}

func (m *MockStore) Replace(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.replaceErr != nil {
		return m.replaceErr
	}
	if _, ok := m.rows[rec.ID]; !ok {
		return ErrDeviceNotFound
	}
	m.replaces++
	m.rows[rec.ID] = rec
	return nil
}

func (m *MockStore) Get(_ context.Context, id int64) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.rows[id]
	if !ok {
		return Record{}, ErrDeviceNotFound
	}
	return rec, nil
}

func (m *MockStore) List(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	records := make([]Record, 0, len(m.rows))
	for _, rec := range m.rows {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

func (m *MockStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.rows, id)
	for lid, l := range m.links {
		if l.DeviceID == id {
			delete(m.links, lid)
		}
	}
	return nil
}

func (m *MockStore) ListLinks(_ context.Context) ([]Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	links := make([]Link, 0, len(m.links))
	for _, l := range m.links {
		links = append(links, l)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links, nil
}

func (m *MockStore) CreateLink(_ context.Context, link *Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.linkErr != nil {
		return m.linkErr
	}
	m.nextLk++
	link.ID = m.nextLk
	m.links[link.ID] = *link
	return nil
}

func (m *MockStore) DeleteLink(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[id]; !ok {
		return ErrLinkNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *MockStore) counts() (inserts, replaces int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts, m.replaces
}

type published struct {
	topic   string
	payload []byte
}

// recordingNotifier captures every publish.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (n *recordingNotifier) Publish(_ context.Context, topic string, payload []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.msgs = append(n.msgs, published{topic: topic, payload: payload})
	return nil
}

func (n *recordingNotifier) onTopic(topic string) []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []published
	for _, m := range n.msgs {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// staticCatalog resolves types from a fixed map.
type staticCatalog map[string]*Type

func (c staticCatalog) Resolve(skill, name string) (*Type, bool) {
	t, ok := c[skill+"/"+name]
	return t, ok
}

func newCatalog(types ...*Type) staticCatalog {
	c := make(staticCatalog, len(types))
	for _, t := range types {
		c[t.Skill+"/"+t.Name] = t
	}
	return c
}

// captureLogger counts log calls per level.
type captureLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *captureLogger) Debug(string, ...any) {}
func (l *captureLogger) Info(string, ...any)  {}

func (l *captureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}

func (l *captureLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *captureLogger) counts() (warns, errors int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns), len(l.errors)
}

// countingRecorder tallies metric observations.
type countingRecorder struct {
	mu          sync.Mutex
	persist     map[string]int
	notifyFails int
	deviceCount int
}

func (r *countingRecorder) ObservePersist(op string, _ error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.persist == nil {
		r.persist = make(map[string]int)
	}
	r.persist[op]++
}

func (r *countingRecorder) ObserveNotify(_ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.notifyFails++
	}
}

func (r *countingRecorder) ObserveDeviceCount(n int) {
	r.mu.Lock()
	r.deviceCount = n
	r.mu.Unlock()
}

type fakeLocations map[int64]*location.Location

func (f fakeLocations) Lookup(id int64) (*location.Location, bool) {
	l, ok := f[id]
	return l, ok
}

type fakeLinks []Link

func (f fakeLinks) DeviceLinks() []Link { return f }

type countingPairing struct {
	calls int
	err   error
}

func (p *countingPairing) StartBroadcasting(context.Context, *Device) error {
	p.calls++
	return p.err
}

type contactEvent struct {
	uid       string
	deviceID  int64
	connected bool
}

type recordingContacts struct {
	mu     sync.Mutex
	events []contactEvent
}

func (c *recordingContacts) WriteDeviceContact(uid string, deviceID int64, connected bool) {
	c.mu.Lock()
	c.events = append(c.events, contactEvent{uid, deviceID, connected})
	c.mu.Unlock()
}

// bulbType is the lighting/bulb descriptor used across tests.
func bulbType() *Type {
	return &Type{
		Skill:         "lighting",
		Name:          "bulb",
		Abilities:     AbilityIsCore | AbilityIsSatellite,
		HeartbeatRate: 60,
	}
}

func sensorType() *Type {
	return &Type{
		Skill:                  "zigbee",
		Name:                   "motion",
		Abilities:              AbilityAlert | AbilityNotify,
		HeartbeatRate:          300,
		AllowHeartbeatOverride: true,
		ConfigTemplate:         map[string]any{"sensitivity": 5},
	}
}

type testEnv struct {
	svc      *Services
	store    *MockStore
	notifier *recordingNotifier
	logger   *captureLogger
	metrics  *countingRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    NewMockStore(),
		notifier: &recordingNotifier{},
		logger:   &captureLogger{},
		metrics:  &countingRecorder{},
	}
	env.svc = &Services{
		Types:    newCatalog(bulbType(), sensorType()),
		Store:    env.store,
		Notifier: env.notifier,
		Metrics:  env.metrics,
		Logger:   env.logger,
		IconRoot: "/srv/gray",
	}
	return env
}

func (e *testEnv) newBulb(t *testing.T, f Fields) *Device {
	t.Helper()
	f.SkillName = "lighting"
	f.TypeName = "bulb"
	d, err := New(context.Background(), e.svc, f, 0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d
}
