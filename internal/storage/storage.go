// /internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const historyLimit = 20

const schema = `
CREATE TABLE IF NOT EXISTS command_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	guild_id   TEXT NOT NULL,
	channel_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	username   TEXT NOT NULL,
	command    TEXT NOT NULL,
	invoked    TEXT NOT NULL,
	failed     INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS command_history_guild ON command_history (guild_id, id);
`

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("storage closed")

// CommandRecord is one command invocation.
type CommandRecord struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Command   string
	Invoked   string
	Failed    bool
	At        time.Time
}

// Store keeps the command history in SQLite. The database is opened by Init,
// which the bot runs as a startup unit; every other method waits for Init to
// finish.
type Store struct {
	path string

	ready     chan struct{}
	readyOnce sync.Once
	initErr   error

	mu     sync.RWMutex
	db     *sql.DB
	usage  map[string]int
	closed bool
}

// New returns an unopened store backed by the file at path.
func New(path string) *Store {
	return &Store{
		path:  path,
		ready: make(chan struct{}),
		usage: make(map[string]int),
	}
}

// Init waits for waitReady, then opens the database, applies the schema and
// loads the usage counters. Init must run once.
func (s *Store) Init(ctx context.Context, waitReady func(context.Context) error) (err error) {
	defer func() {
		s.initErr = err
		s.readyOnce.Do(func() { close(s.ready) })
	}()

	if waitReady != nil {
		if err := waitReady(ctx); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		db.Close()
		return ErrClosed
	}
	s.db = db
	s.mu.Unlock()

	return s.loadUsage(ctx)
}

func (s *Store) loadUsage(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT command, COUNT(*) FROM command_history GROUP BY command`)
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return err
		}
		usage[name] = n
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	for k, v := range usage {
		s.usage[k] += v
	}
	s.mu.Unlock()
	return nil
}

// WaitUntilReady blocks until Init has finished and returns its error.
func (s *Store) WaitUntilReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return s.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) handle(ctx context.Context) (*sql.DB, error) {
	if err := s.WaitUntilReady(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.db == nil {
		return nil, ErrClosed
	}
	return s.db, nil
}

// RecordCommand appends an invocation to the history.
func (s *Store) RecordCommand(ctx context.Context, rec CommandRecord) error {
	db, err := s.handle(ctx)
	if err != nil {
		return err
	}
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	failed := 0
	if rec.Failed {
		failed = 1
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO command_history (guild_id, channel_id, user_id, username, command, invoked, failed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.GuildID, rec.ChannelID, rec.UserID, rec.Username, rec.Command, rec.Invoked, failed, rec.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}

	s.mu.Lock()
	s.usage[rec.Command]++
	s.mu.Unlock()
	return nil
}

// Recent returns the latest invocations in a guild, newest first. A
// non-positive limit means the default of 20.
func (s *Store) Recent(ctx context.Context, guildID string, limit int) ([]CommandRecord, error) {
	db, err := s.handle(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = historyLimit
	}
	rows, err := db.QueryContext(ctx,
		`SELECT guild_id, channel_id, user_id, username, command, invoked, failed, created_at
		 FROM command_history WHERE guild_id = ? ORDER BY id DESC LIMIT ?`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []CommandRecord
	for rows.Next() {
		var rec CommandRecord
		var failed int
		var at int64
		if err := rows.Scan(&rec.GuildID, &rec.ChannelID, &rec.UserID, &rec.Username, &rec.Command, &rec.Invoked, &failed, &at); err != nil {
			return nil, err
		}
		rec.Failed = failed != 0
		rec.At = time.UnixMilli(at)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Usage returns how many times a command has been recorded.
func (s *Store) Usage(command string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[command]
}

// Close releases the database. Pending Init calls observe ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
