package location

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for location persistence operations.
type Repository interface {
	Create(ctx context.Context, loc *Location) error
	GetByID(ctx context.Context, id int64) (*Location, error)
	List(ctx context.Context) ([]Location, error)
	Update(ctx context.Context, loc *Location) error
	Delete(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed location repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, name, parent_location, synonyms, settings, created_at, updated_at FROM locations`

// Create inserts a location and sets its ID and timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, loc *Location) error {
	synonyms, settings, err := encodeJSONColumns(loc)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO locations (name, parent_location, synonyms, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		loc.Name, loc.ParentLocation, synonyms, settings,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting location %q: %w", loc.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading location id: %w", err)
	}
	loc.ID = id
	loc.CreatedAt = now
	loc.UpdatedAt = now
	return nil
}

// GetByID returns a single location.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Location, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	loc, err := scanLocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("scanning location: %w", err)
	}
	return loc, nil
}

// List returns all locations ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Location, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning location row: %w", err)
		}
		locations = append(locations, *loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locations: %w", err)
	}
	return locations, nil
}

// Update overwrites an existing location.
func (r *SQLiteRepository) Update(ctx context.Context, loc *Location) error {
	synonyms, settings, err := encodeJSONColumns(loc)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Truncate(time.Second)
	result, err := r.db.ExecContext(ctx,
		`UPDATE locations SET name = ?, parent_location = ?, synonyms = ?, settings = ?, updated_at = ?
		WHERE id = ?`,
		loc.Name, loc.ParentLocation, synonyms, settings, now.Format(time.RFC3339), loc.ID,
	)
	if err != nil {
		return fmt.Errorf("updating location %d: %w", loc.ID, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrLocationNotFound
	}
	loc.UpdatedAt = now
	return nil
}

// Delete removes a location. Locations that still have children are kept.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	var children int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locations WHERE parent_location = ?", id).Scan(&children); err != nil {
		return fmt.Errorf("counting children of location %d: %w", id, err)
	}
	if children > 0 {
		return ErrLocationHasChildren
	}

	result, err := r.db.ExecContext(ctx, "DELETE FROM locations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting location %d: %w", id, err)
	}
	n, _ := result.RowsAffected() //nolint:errcheck // SQLite always supports RowsAffected
	if n == 0 {
		return ErrLocationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLocation(row rowScanner) (*Location, error) {
	var loc Location
	var synonymsJSON, settingsJSON, createdAt, updatedAt string

	if err := row.Scan(&loc.ID, &loc.Name, &loc.ParentLocation, &synonymsJSON, &settingsJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	loc.Synonyms = parseSynonyms(synonymsJSON)
	loc.Settings = parseSettings(settingsJSON)
	loc.CreatedAt = parseTime(createdAt)
	loc.UpdatedAt = parseTime(updatedAt)
	return &loc, nil
}

func encodeJSONColumns(loc *Location) (synonyms, settings string, err error) {
	synonyms, settings = "[]", "{}"
	if loc.Synonyms != nil {
		b, err := json.Marshal(loc.Synonyms)
		if err != nil {
			return "", "", fmt.Errorf("marshalling synonyms: %w", err)
		}
		synonyms = string(b)
	}
	if loc.Settings != nil {
		b, err := json.Marshal(loc.Settings)
		if err != nil {
			return "", "", fmt.Errorf("marshalling settings: %w", err)
		}
		settings = string(b)
	}
	return synonyms, settings, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseSynonyms deserializes a JSON array, returning an empty list on error.
func parseSynonyms(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

// parseSettings deserializes a JSON string into a Settings map.
func parseSettings(s string) Settings {
	var out Settings
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return Settings{}
	}
	return out
}
