package location

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
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

// Registry caches locations in memory over a Repository.
//
// The cache is populated on startup via Refresh and kept in sync by Create
// and Delete. Lookup never touches the database.
type Registry struct {
	repo   Repository
	mu     sync.RWMutex
	cache  map[int64]*Location
	logger Logger
}

// NewRegistry creates a location registry over repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[int64]*Location),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Refresh reloads every location from the repository.
func (r *Registry) Refresh(ctx context.Context) error {
	locations, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading locations: %w", err)
	}

	cache := make(map[int64]*Location, len(locations))
	for i := range locations {
		cache[locations[i].ID] = locations[i].DeepCopy()
	}

	r.mu.Lock()
	r.cache = cache
	r.mu.Unlock()

	r.logger.Info("location cache refreshed", "count", len(locations))
	return nil
}

// Lookup returns a copy of the cached location. A miss is ok == false.
func (r *Registry) Lookup(id int64) (*Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	loc, ok := r.cache[id]
	if !ok {
		return nil, false
	}
	return loc.DeepCopy(), true
}

// Get is Lookup with ErrLocationNotFound for a miss.
func (r *Registry) Get(id int64) (*Location, error) {
	loc, ok := r.Lookup(id)
	if !ok {
		return nil, ErrLocationNotFound
	}
	return loc, nil
}

// List returns copies of all cached locations ordered by ID.
func (r *Registry) List() []Location {
	r.mu.RLock()
	locations := make([]Location, 0, len(r.cache))
	for _, loc := range r.cache {
		locations = append(locations, *loc.DeepCopy())
	}
	r.mu.RUnlock()

	sort.Slice(locations, func(i, j int) bool { return locations[i].ID < locations[j].ID })
	return locations
}

// Create validates and stores a new location. The parent must exist unless
// it is Root.
func (r *Registry) Create(ctx context.Context, loc *Location) error {
	if err := ValidateLocation(loc); err != nil {
		return err
	}
	if loc.ParentLocation != Root {
		if _, ok := r.Lookup(loc.ParentLocation); !ok {
			return fmt.Errorf("%w: parent location %d does not exist", ErrInvalidLocation, loc.ParentLocation)
		}
	}

	if err := r.repo.Create(ctx, loc); err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[loc.ID] = loc.DeepCopy()
	r.mu.Unlock()

	r.logger.Info("location created", "id", loc.ID, "name", loc.Name)
	return nil
}

// Delete removes a location from the store and the cache.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, id)
	r.mu.Unlock()

	r.logger.Info("location deleted", "id", id)
	return nil
}
