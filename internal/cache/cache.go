// Package cache persists which diagram artifacts have already been generated,
// so rendering the same module twice invokes the external generator once.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a SQLite-backed diagram cache.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Entry describes a cached generation result.
type Entry struct {
	Key         string
	Module      string
	Artifacts   []string
	GeneratedAt time.Time
}

// Open opens (or creates) the cache database.
// Use ":memory:" for an in-memory cache, or a file path for persistent storage.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS diagrams (
		key TEXT PRIMARY KEY,
		module TEXT NOT NULL,
		artifacts TEXT NOT NULL,
		generated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_module ON diagrams(module);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Key derives the cache key for one directive invocation. Flags are sorted
// and deduplicated so argument order does not defeat the cache.
func Key(module string, flags []string, command, format string) string {
	uniq := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		uniq[f] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for f := range uniq {
		sorted = append(sorted, f)
	}
	sort.Strings(sorted)

	h := sha256.Sum256([]byte(module + "\x00" + strings.Join(sorted, ",") + "\x00" + command + "\x00" + format))
	return hex.EncodeToString(h[:])
}

// Lookup returns the cached entry for key, if any.
func (s *Store) Lookup(ctx context.Context, key string) (*Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		entry         Entry
		artifactsJSON []byte
		generatedUnix int64
	)
	row := s.db.QueryRowContext(ctx,
		"SELECT key, module, artifacts, generated_at FROM diagrams WHERE key = ?", key)
	err := row.Scan(&entry.Key, &entry.Module, &artifactsJSON, &generatedUnix)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query diagram: %w", err)
	}

	if err := json.Unmarshal(artifactsJSON, &entry.Artifacts); err != nil {
		return nil, false, fmt.Errorf("unmarshal artifacts: %w", err)
	}
	entry.GeneratedAt = time.Unix(generatedUnix, 0)
	return &entry, true, nil
}

// Record stores (or replaces) a generation result.
func (s *Store) Record(ctx context.Context, key, module string, artifacts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return fmt.Errorf("marshal artifacts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO diagrams (key, module, artifacts, generated_at) VALUES (?, ?, ?, ?)",
		key, module, artifactsJSON, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert diagram: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
