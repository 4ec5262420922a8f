// Package sqlite provides a SQLite-backed save data store.
//
// Values are JSON documents stored per save and key, so one database file can
// hold the data of many saves.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gathouria/Adopt-Skin/internal/persistence"
	sqlitemigrate "github.com/Gathouria/Adopt-Skin/internal/platform/storage/sqlitemigrate"
	"github.com/Gathouria/Adopt-Skin/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists save data in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite save data store and applies embedded migrations.
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
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Migrations lists the applied schema migrations.
func (s *Store) Migrations(ctx context.Context) ([]sqlitemigrate.Migration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return sqlitemigrate.Applied(ctx, s.sqlDB)
}

// SaveInfo summarizes one save's stored data.
type SaveInfo struct {
	SaveID    string
	Keys      int
	UpdatedAt time.Time
}

// Saves lists the saves with stored data, ordered by save id.
func (s *Store) Saves(ctx context.Context) ([]SaveInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT save_id, COUNT(*), MAX(updated_at) FROM save_data GROUP BY save_id ORDER BY save_id`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []SaveInfo
	for rows.Next() {
		var (
			info    SaveInfo
			updated int64
		)
		if err := rows.Scan(&info.SaveID, &info.Keys, &updated); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		info.UpdatedAt = fromMillis(updated)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return out, nil
}

// Scope returns the key/value view of one save.
func (s *Store) Scope(saveID string) *Scoped {
	return &Scoped{store: s, saveID: strings.TrimSpace(saveID)}
}

// Scoped is the data of one save. It implements persistence.KeyValueStore.
type Scoped struct {
	store  *Store
	saveID string
}

func (s *Scoped) check(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.store == nil || s.store.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if s.saveID == "" {
		return fmt.Errorf("save id is required")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key is required")
	}
	return nil
}

// Read decodes the value stored under key into dst.
func (s *Scoped) Read(ctx context.Context, key string, dst any) (bool, error) {
	if err := s.check(ctx, key); err != nil {
		return false, err
	}
	var raw string
	err := s.store.sqlDB.QueryRowContext(ctx,
		`SELECT value FROM save_data WHERE save_id = ? AND key = ?`,
		s.saveID, key,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// Write stores value under key, replacing any previous value.
func (s *Scoped) Write(ctx context.Context, key string, value any) error {
	if err := s.check(ctx, key); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = s.store.sqlDB.ExecContext(ctx,
		`INSERT INTO save_data (save_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(save_id, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		s.saveID, key, string(raw), toMillis(s.store.now()),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Keys lists the keys stored for the save, sorted.
func (s *Scoped) Keys(ctx context.Context) ([]string, error) {
	if err := s.check(ctx, "*"); err != nil {
		return nil, err
	}
	rows, err := s.store.sqlDB.QueryContext(ctx,
		`SELECT key FROM save_data WHERE save_id = ? ORDER BY key`, s.saveID)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

var _ persistence.KeyValueStore = (*Scoped)(nil)
