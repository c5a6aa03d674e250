// Package control keeps the tiny runtime-control state (pause flag,
// process start, last activity) in its own sqlite file so operators can
// pause the engine without touching the trade database.
package control

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// State is the single control row.
type State struct {
	Paused       bool
	StartTime    time.Time
	LastActivity time.Time
}

// Store wraps a sqlite database holding the control row.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens or creates the control database and seeds the row.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("control store: path is required")
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmt := `
	CREATE TABLE IF NOT EXISTS bot_control (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		paused INTEGER NOT NULL DEFAULT 0,
		start_time INTEGER NOT NULL,
		last_activity INTEGER NOT NULL
	);`
	if _, err := db.Exec(stmt); err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO bot_control(id, paused, start_time, last_activity)
		VALUES (1, 0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET start_time=excluded.start_time;
	`, now, now)
	return err
}

// Close closes the underlying db.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// State reads the control row.
func (s *Store) State(ctx context.Context) (State, error) {
	db, err := s.conn()
	if err != nil {
		return State{}, err
	}
	var paused int
	var start, activity int64
	row := db.QueryRowContext(ctx,
		`SELECT paused, start_time, last_activity FROM bot_control WHERE id = 1`)
	if err := row.Scan(&paused, &start, &activity); err != nil {
		return State{}, err
	}
	return State{
		Paused:       paused != 0,
		StartTime:    time.UnixMilli(start).UTC(),
		LastActivity: time.UnixMilli(activity).UTC(),
	}, nil
}

// SetPaused flips the pause flag.
func (s *Store) SetPaused(ctx context.Context, paused bool) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	v := 0
	if paused {
		v = 1
	}
	_, err = db.ExecContext(ctx,
		`UPDATE bot_control SET paused = ?, last_activity = ? WHERE id = 1`,
		v, time.Now().UnixMilli())
	return err
}

// Touch stamps last_activity. Called once per completed engine cycle.
func (s *Store) Touch(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`UPDATE bot_control SET last_activity = ? WHERE id = 1`,
		time.Now().UnixMilli())
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("control store: not initialized")
	}
	return s.db, nil
}
