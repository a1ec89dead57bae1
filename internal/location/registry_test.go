package location

import (
	"context"
	"errors"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(NewSQLiteRepository(setupTestDB(t)))
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	return r
}

func TestRegistry_CreateLookup(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	house := &Location{Name: "House"}
	if err := r.Create(ctx, house); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	hall := &Location{Name: "Hall", ParentLocation: house.ID, Synonyms: []string{"entry"}}
	if err := r.Create(ctx, hall); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, ok := r.Lookup(hall.ID)
	if !ok || got.Name != "Hall" || got.ParentLocation != house.ID {
		t.Errorf("Lookup() = (%+v, %v)", got, ok)
	}

	// callers get copies
	got.Synonyms[0] = "mutated"
	again, _ := r.Lookup(hall.ID)
	if again.Synonyms[0] != "entry" {
		t.Errorf("cached synonyms mutated through a lookup: %v", again.Synonyms)
	}

	if _, ok := r.Lookup(404); ok {
		t.Error("Lookup(404) ok = true")
	}
	if _, err := r.Get(404); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("Get(404) error = %v, want ErrLocationNotFound", err)
	}

	list := r.List()
	if len(list) != 2 || list[0].ID != house.ID || list[1].ID != hall.ID {
		t.Errorf("List() = %+v", list)
	}
}

func TestRegistry_CreateValidation(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		loc     *Location
		wantErr error
	}{
		{"empty name", &Location{Name: "  "}, ErrInvalidName},
		{"unknown parent", &Location{Name: "Attic", ParentLocation: 77}, ErrInvalidLocation},
		{"negative parent", &Location{Name: "Cellar", ParentLocation: -2}, ErrInvalidLocation},
		{"blank synonym", &Location{Name: "Garage", Synonyms: []string{""}}, ErrInvalidLocation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Create(ctx, tt.loc); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if n := len(r.List()); n != 0 {
		t.Errorf("List() length = %d, want 0", n)
	}
}

func TestRegistry_RefreshAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	loc := &Location{Name: "Study"}
	if err := repo.Create(ctx, loc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	r := NewRegistry(repo)
	if _, ok := r.Lookup(loc.ID); ok {
		t.Fatal("Lookup() before Refresh ok = true")
	}
	if err := r.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if _, ok := r.Lookup(loc.ID); !ok {
		t.Fatal("Lookup() after Refresh ok = false")
	}

	if err := r.Delete(ctx, loc.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := r.Lookup(loc.ID); ok {
		t.Error("Lookup() after Delete ok = true")
	}
	if err := r.Delete(ctx, loc.ID); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("Delete() again error = %v, want ErrLocationNotFound", err)
	}
}

func TestValidateLocation(t *testing.T) {
	tests := []struct {
		name    string
		loc     Location
		wantErr error
	}{
		{"valid", Location{Name: "Bedroom"}, nil},
		{"own parent", Location{ID: 3, Name: "Loop", ParentLocation: 3}, ErrInvalidLocation},
		{"long name", Location{Name: string(make([]byte, 101))}, ErrInvalidName},
		{"nested settings too deep", Location{Name: "Deep", Settings: deepSettings(12)}, ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateLocation(&tt.loc); !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateLocation() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func deepSettings(depth int) Settings {
	m := map[string]any{"leaf": true}
	for i := 0; i < depth; i++ {
		m = map[string]any{"next": m}
	}
	return Settings(m)
}
