// Package sqlite provides a SQLite-backed channel registry implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sqlitemigrate "github.com/aurelwyn/conclave/internal/platform/storage/sqlitemigrate"
	"github.com/aurelwyn/conclave/internal/registry"
	"github.com/aurelwyn/conclave/internal/registry/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists channel records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite registry store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Insert adds one channel record.
func (s *Store) Insert(ctx context.Context, channel registry.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if channel.ID == 0 {
		return fmt.Errorf("channel id is required")
	}
	if channel.OwnerID == 0 {
		return fmt.Errorf("owner id is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO channels (id, owner_id, category_id) VALUES (?, ?, ?)`,
		int64(channel.ID),
		int64(channel.OwnerID),
		categoryParam(channel.Category),
	)
	if err != nil {
		if isChannelUniqueViolation(err) {
			return registry.ErrAlreadyExists
		}
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

// Update replaces the owner and category of an existing record.
func (s *Store) Update(ctx context.Context, channel registry.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if channel.ID == 0 {
		return fmt.Errorf("channel id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE channels SET owner_id = ?, category_id = ? WHERE id = ?`,
		int64(channel.OwnerID),
		categoryParam(channel.Category),
		int64(channel.ID),
	)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	if affected == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// GetByID returns one channel record by id.
func (s *Store) GetByID(ctx context.Context, id uint64) (registry.Channel, error) {
	if err := ctx.Err(); err != nil {
		return registry.Channel{}, err
	}
	if s == nil || s.sqlDB == nil {
		return registry.Channel{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, owner_id, category_id FROM channels WHERE id = ?`,
		int64(id),
	)
	channel, err := scanChannel(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registry.Channel{}, registry.ErrNotFound
		}
		return registry.Channel{}, fmt.Errorf("get channel: %w", err)
	}
	return channel, nil
}

// ListByOwner returns every record owned by the user.
func (s *Store) ListByOwner(ctx context.Context, ownerID uint64) ([]registry.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, owner_id, category_id FROM channels WHERE owner_id = ?`,
		int64(ownerID),
	)
	if err != nil {
		return nil, fmt.Errorf("list channels by owner: %w", err)
	}
	defer rows.Close()

	var channels []registry.Channel
	for rows.Next() {
		channel, err := scanChannel(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list channels by owner: %w", err)
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list channels by owner: %w", err)
	}
	return channels, nil
}

// DeleteByID removes and returns one channel record.
func (s *Store) DeleteByID(ctx context.Context, id uint64) (registry.Channel, error) {
	if err := ctx.Err(); err != nil {
		return registry.Channel{}, err
	}
	if s == nil || s.sqlDB == nil {
		return registry.Channel{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`DELETE FROM channels WHERE id = ? RETURNING id, owner_id, category_id`,
		int64(id),
	)
	channel, err := scanChannel(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registry.Channel{}, registry.ErrNotFound
		}
		return registry.Channel{}, fmt.Errorf("delete channel: %w", err)
	}
	return channel, nil
}

func categoryParam(category *uint64) any {
	if category == nil {
		return nil
	}
	return int64(*category)
}

func scanChannel(scan func(dest ...any) error) (registry.Channel, error) {
	var id int64
	var ownerID int64
	var categoryID sql.NullInt64
	if err := scan(&id, &ownerID, &categoryID); err != nil {
		return registry.Channel{}, err
	}
	channel := registry.Channel{
		ID:      uint64(id),
		OwnerID: uint64(ownerID),
	}
	if categoryID.Valid {
		category := uint64(categoryID.Int64)
		channel.Category = &category
	}
	return channel, nil
}

func isChannelUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "channels.id")
}

var _ registry.ChannelStore = (*Store)(nil)
