package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Repository is the full persistence surface the Registry needs.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	Store

	// Get retrieves a device record by identity.
	// Returns ErrDeviceNotFound if the row does not exist.
	Get(ctx context.Context, id int64) (Record, error)

	// List retrieves all device records ordered by identity.
	List(ctx context.Context) ([]Record, error)

	// Delete removes a device record.
	// Returns ErrDeviceNotFound if the row does not exist.
	Delete(ctx context.Context, id int64) error
}

// LinkRepository persists device links.
type LinkRepository interface {
	ListLinks(ctx context.Context) ([]Link, error)
	CreateLink(ctx context.Context, link *Link) error
	DeleteLink(ctx context.Context, id int64) error
}

// SQLiteRepository implements Repository and LinkRepository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with migrations applied.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const recordColumns = `id, uid, parent_location, type_name, skill_name, settings, display_name, device_params, device_configs`

// Insert stores a new record and returns the identity SQLite assigned.
func (r *SQLiteRepository) Insert(ctx context.Context, rec Record) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (
			uid, parent_location, type_name, skill_name, settings,
			display_name, device_params, device_configs
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.UID,
		rec.ParentLocation,
		rec.TypeName,
		rec.SkillName,
		jsonOrEmpty(rec.Settings),
		rec.DisplayName,
		jsonOrEmpty(rec.Params),
		jsonOrEmpty(rec.Configs),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting device: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading device id: %w", err)
	}
	return id, nil
}

// Replace overwrites the row keyed by rec.ID. A missing row is
// ErrDeviceNotFound; Replace never recreates a deleted device.
func (r *SQLiteRepository) Replace(ctx context.Context, rec Record) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			uid = ?,
			parent_location = ?,
			type_name = ?,
			skill_name = ?,
			settings = ?,
			display_name = ?,
			device_params = ?,
			device_configs = ?,
			updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
		WHERE id = ?`,
		rec.UID,
		rec.ParentLocation,
		rec.TypeName,
		rec.SkillName,
		jsonOrEmpty(rec.Settings),
		rec.DisplayName,
		jsonOrEmpty(rec.Params),
		jsonOrEmpty(rec.Configs),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("replacing device: %w", err)
	}
	return requireAffected(result, ErrDeviceNotFound)
}

// Get retrieves a device record by identity.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM devices WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrDeviceNotFound
		}
		return Record{}, fmt.Errorf("querying device by id: %w", err)
	}
	return rec, nil
}

// List retrieves all device records.
func (r *SQLiteRepository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM devices ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return records, nil
}

// Delete removes a device record. Its links go with it.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return requireAffected(result, ErrDeviceNotFound)
}

// ListLinks retrieves all device links.
func (r *SQLiteRepository) ListLinks(ctx context.Context) ([]Link, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, device_id, target_location FROM device_links ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying device links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var l Link
		if err := rows.Scan(&l.ID, &l.DeviceID, &l.TargetLocation); err != nil {
			return nil, fmt.Errorf("scanning device link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device links: %w", err)
	}
	return links, nil
}

// CreateLink inserts a link and sets its ID.
func (r *SQLiteRepository) CreateLink(ctx context.Context, link *Link) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO device_links (device_id, target_location) VALUES (?, ?)`,
		link.DeviceID, link.TargetLocation,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrDeviceNotFound
		}
		if isUniqueConstraintError(err) {
			return ErrLinkExists
		}
		return fmt.Errorf("inserting device link: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading device link id: %w", err)
	}
	link.ID = id
	return nil
}

// DeleteLink removes a link by ID.
func (r *SQLiteRepository) DeleteLink(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM device_links WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device link: %w", err)
	}
	return requireAffected(result, ErrLinkNotFound)
}

// rowScanner is an interface that sql.Row and sql.Rows both implement.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(scanner rowScanner) (Record, error) {
	var rec Record
	err := scanner.Scan(
		&rec.ID,
		&rec.UID,
		&rec.ParentLocation,
		&rec.TypeName,
		&rec.SkillName,
		&rec.Settings,
		&rec.DisplayName,
		&rec.Params,
		&rec.Configs,
	)
	return rec, err
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// jsonOrEmpty keeps NOT NULL JSON columns valid when a record carries no text.
func jsonOrEmpty(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}

// isUniqueConstraintError checks if an error is a SQLite unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyError checks if an error is a SQLite foreign key violation.
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
