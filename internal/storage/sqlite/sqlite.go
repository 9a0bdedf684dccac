package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"deskpet/internal/storage"

	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements storage.Store on a local SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (and creates if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := storage.EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer; the engine's tick goroutine and the UI share it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	settingsQuery := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)
	`
	if _, err := s.db.Exec(settingsQuery); err != nil {
		return fmt.Errorf("create settings table: %w", err)
	}

	sessionsQuery := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT NOT NULL,
		elapsed INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	)
	`
	if _, err := s.db.Exec(sessionsQuery); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}

	_, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at)")
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Settings() storage.SettingsStore { return &settingsStore{db: s.db} }

func (s *Store) Sessions() storage.SessionStore { return &sessionStore{db: s.db} }

type settingsStore struct {
	db *sql.DB
}

func (s *settingsStore) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		values[key] = value
	}
	return values, rows.Err()
}

func (s *settingsStore) Save(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

type sessionStore struct {
	db *sql.DB
}

func (s *sessionStore) Append(ctx context.Context, r storage.SessionRecord) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, mode, started_at, ended_at, elapsed, reason) VALUES (?, ?, ?, ?, ?, ?)",
		r.ID,
		r.Mode,
		r.StartedAt.UTC().Format(timeLayout),
		r.EndedAt.UTC().Format(timeLayout),
		int64(r.Elapsed),
		r.Reason,
	)
	return err
}

func (s *sessionStore) List(ctx context.Context, limit int) ([]storage.SessionRecord, error) {
	query := "SELECT id, mode, started_at, ended_at, elapsed, reason FROM sessions ORDER BY ended_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]storage.SessionRecord, 0)
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, mode, started_at, ended_at, elapsed, reason FROM sessions WHERE id = ?", id)
	r, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return r, err
}

func (s *sessionStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE ended_at < ?", cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*storage.SessionRecord, error) {
	var r storage.SessionRecord
	var startedAt, endedAt string
	var elapsed int64
	if err := row.Scan(&r.ID, &r.Mode, &startedAt, &endedAt, &elapsed, &r.Reason); err != nil {
		return nil, err
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if r.EndedAt, err = time.Parse(timeLayout, endedAt); err != nil {
		return nil, fmt.Errorf("parse ended_at: %w", err)
	}
	r.Elapsed = time.Duration(elapsed)
	return &r, nil
}
