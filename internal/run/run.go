// Package run persists story runs in SQLite. A run pins the seed and the
// model, policy and canon versions that every beat of it is narrated and
// cached under.
package run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// ErrNotFound is returned when no run has the requested id.
var ErrNotFound = errors.New("run not found")

const (
	DefaultModelVersion  = "gpt-5"
	DefaultPolicyVersion = "policy-v1"
	DefaultCanonVersion  = "v1"
	DefaultVisibility    = "public"
)

// Run is one playthrough of a story.
type Run struct {
	ID            string    `json:"id"`
	StoryID       string    `json:"story_id"`
	Seed          int64     `json:"seed"`
	ModelVersion  string    `json:"model_version"`
	PolicyVersion string    `json:"policy_version"`
	CanonVersion  string    `json:"canon_version"`
	Visibility    string    `json:"visibility"`
	VoiceID       string    `json:"voice_id,omitempty"`
	NextBeatIdx   int       `json:"next_beat_idx"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store is the SQLite-backed run store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating run db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening run db: %w", err)
	}
	// One connection: SQLite serialises writers anyway, and an in-memory
	// database exists only on the connection that created it.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=5000;"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating run db: %w", err)
	}

	slog.Info("run store opened", "path", path)
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		story_id TEXT NOT NULL,
		seed INTEGER NOT NULL,
		model_version TEXT NOT NULL,
		policy_version TEXT NOT NULL,
		canon_version TEXT NOT NULL,
		visibility TEXT NOT NULL,
		voice_id TEXT NOT NULL DEFAULT '',
		next_beat_idx INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts r after filling defaults: a fresh id, the current time in
// milliseconds as seed when r.Seed is zero, and the default versions and
// visibility. It returns the stored run.
func (s *Store) Create(ctx context.Context, r Run) (Run, error) {
	if r.StoryID == "" {
		return Run{}, fmt.Errorf("creating run: story id is required")
	}

	now := s.now()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Seed == 0 {
		r.Seed = now.UnixMilli()
	}
	if r.ModelVersion == "" {
		r.ModelVersion = DefaultModelVersion
	}
	if r.PolicyVersion == "" {
		r.PolicyVersion = DefaultPolicyVersion
	}
	if r.CanonVersion == "" {
		r.CanonVersion = DefaultCanonVersion
	}
	if r.Visibility == "" {
		r.Visibility = DefaultVisibility
	}
	r.CreatedAt = time.UnixMilli(now.UnixMilli()).UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, story_id, seed, model_version, policy_version, canon_version, visibility, voice_id, next_beat_idx, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StoryID, r.Seed, r.ModelVersion, r.PolicyVersion, r.CanonVersion, r.Visibility, r.VoiceID, r.NextBeatIdx, r.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("inserting run: %w", err)
	}
	return r, nil
}

// Get returns the run with id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	var (
		r       Run
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, story_id, seed, model_version, policy_version, canon_version, visibility, voice_id, next_beat_idx, created_at
		FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &r.StoryID, &r.Seed, &r.ModelVersion, &r.PolicyVersion, &r.CanonVersion, &r.Visibility, &r.VoiceID, &r.NextBeatIdx, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("querying run: %w", err)
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	return r, nil
}

// SetNextBeat records the index of the next beat to narrate.
func (s *Store) SetNextBeat(ctx context.Context, id string, idx int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET next_beat_idx = ? WHERE id = ?`, idx, id)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	return expectOne(res, id)
}

// Delete removes the run with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	return expectOne(res, id)
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
