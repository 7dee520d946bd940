// Package journal records tool invocations and the context annotations
// computed for them.
//
// It replaces process-global caches with a store owned by the server: one
// SQLite database under the data directory, opened at startup and closed
// on shutdown. The annotator writes to it before every tool call and the
// dispatcher reads nothing back from it, so a journal failure never blocks
// a tool.
package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Status is the outcome of an invocation.
type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusSoft    Status = "tool_error" // result returned with isError set
	StatusFailed  Status = "failed"     // handler returned an error
)

// Step is one entry of an annotation.
type Step struct {
	Number  int    `json:"step"`
	Kind    string `json:"type"`
	Content string `json:"content"`
	Detail  string `json:"detail,omitempty"`
}

// Annotation is the context computed for one invocation.
type Annotation struct {
	InvocationID string    `json:"invocation_id"`
	Tool         string    `json:"tool"`
	CacheKey     string    `json:"cache_key"`
	Steps        []Step    `json:"steps"`
	CreatedAt    time.Time `json:"created_at"`
}

// Invocation is one recorded tool call.
type Invocation struct {
	ID         string  `json:"id"`
	Tool       string  `json:"tool"`
	Arguments  string  `json:"arguments"`
	Status     Status  `json:"status"`
	Error      *string `json:"error,omitempty"`
	StartedAt  string  `json:"started_at"`
	FinishedAt *string `json:"finished_at,omitempty"`
	DurationMS *int64  `json:"duration_ms,omitempty"`
}

// ToolStats aggregates invocations of one tool.
type ToolStats struct {
	Tool     string `json:"tool"`
	Total    int    `json:"total"`
	Failures int    `json:"failures"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds journal store configuration.
type Config struct {
	DataDir string
	// MaxArgumentBytes truncates stored argument JSON.
	MaxArgumentBytes int
}

// DefaultConfig returns the default configuration rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:          dataDir,
		MaxArgumentBytes: 4096,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the invocation journal backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New creates the data directory if needed, opens SQLite with WAL mode and
// runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "journal.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS invocations (
			id          TEXT PRIMARY KEY,
			tool        TEXT NOT NULL,
			arguments   TEXT NOT NULL DEFAULT '{}',
			status      TEXT NOT NULL DEFAULT 'running',
			error       TEXT,
			started_at  TEXT NOT NULL,
			finished_at TEXT,
			duration_ms INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_invocations_tool ON invocations(tool, started_at DESC);

		CREATE TABLE IF NOT EXISTS annotation_steps (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			invocation_id TEXT    NOT NULL REFERENCES invocations(id) ON DELETE CASCADE,
			step          INTEGER NOT NULL,
			kind          TEXT    NOT NULL,
			content       TEXT    NOT NULL,
			detail        TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_steps_invocation ON annotation_steps(invocation_id, step);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Invocations ─────────────────────────────────────────────────────────────

// BeginInvocation records a running invocation together with its
// annotation steps in one transaction.
func (s *Store) BeginInvocation(a *Annotation, args map[string]any) error {
	argJSON, err := json.Marshal(args)
	if err != nil {
		argJSON = []byte("{}")
	}
	if s.cfg.MaxArgumentBytes > 0 && len(argJSON) > s.cfg.MaxArgumentBytes {
		argJSON = append(argJSON[:s.cfg.MaxArgumentBytes:s.cfg.MaxArgumentBytes], []byte("... [truncated]")...)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO invocations (id, tool, arguments, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		a.InvocationID, a.Tool, string(argJSON), StatusRunning, a.CreatedAt.UTC().Format(TimeLayout),
	); err != nil {
		return fmt.Errorf("inserting invocation: %w", err)
	}

	for _, st := range a.Steps {
		if _, err := tx.Exec(
			`INSERT INTO annotation_steps (invocation_id, step, kind, content, detail) VALUES (?, ?, ?, ?, ?)`,
			a.InvocationID, st.Number, st.Kind, st.Content, nullableString(st.Detail),
		); err != nil {
			return fmt.Errorf("inserting annotation step: %w", err)
		}
	}
	return tx.Commit()
}

// FinishInvocation stores the outcome of an invocation.
func (s *Store) FinishInvocation(id string, status Status, errMsg string, d time.Duration) error {
	res, err := s.db.Exec(
		`UPDATE invocations SET status = ?, error = ?, finished_at = ?, duration_ms = ? WHERE id = ?`,
		status, nullableString(errMsg), Now(), d.Milliseconds(), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("invocation %q not found", id)
	}
	return nil
}

// GetInvocation retrieves an invocation by ID.
func (s *Store) GetInvocation(id string) (*Invocation, error) {
	row := s.db.QueryRow(
		`SELECT id, tool, arguments, status, error, started_at, finished_at, duration_ms
		 FROM invocations WHERE id = ?`, id,
	)
	var inv Invocation
	if err := row.Scan(&inv.ID, &inv.Tool, &inv.Arguments, &inv.Status, &inv.Error,
		&inv.StartedAt, &inv.FinishedAt, &inv.DurationMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("invocation %q not found", id)
		}
		return nil, err
	}
	return &inv, nil
}

// RecentInvocations returns the latest invocations, optionally for one tool.
func (s *Store) RecentInvocations(tool string, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, tool, arguments, status, error, started_at, finished_at, duration_ms
	          FROM invocations WHERE 1=1`
	args := []any{}
	if tool != "" {
		query += " AND tool = ?"
		args = append(args, tool)
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var results []Invocation
	for rows.Next() {
		var inv Invocation
		if err := rows.Scan(&inv.ID, &inv.Tool, &inv.Arguments, &inv.Status, &inv.Error,
			&inv.StartedAt, &inv.FinishedAt, &inv.DurationMS); err != nil {
			return nil, err
		}
		results = append(results, inv)
	}
	return results, rows.Err()
}

// Steps returns the annotation steps recorded for an invocation.
func (s *Store) Steps(invocationID string) ([]Step, error) {
	rows, err := s.db.Query(
		`SELECT step, kind, content, COALESCE(detail, '') FROM annotation_steps
		 WHERE invocation_id = ? ORDER BY step`, invocationID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var steps []Step
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.Number, &st.Kind, &st.Content, &st.Detail); err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	return steps, rows.Err()
}

// Stats returns per-tool invocation counts ordered by tool name.
func (s *Store) Stats() ([]ToolStats, error) {
	rows, err := s.db.Query(
		`SELECT tool, COUNT(*), SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END)
		 FROM invocations GROUP BY tool ORDER BY tool`, StatusFailed, StatusSoft,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stats []ToolStats
	for rows.Next() {
		var ts ToolStats
		if err := rows.Scan(&ts.Tool, &ts.Total, &ts.Failures); err != nil {
			return nil, err
		}
		stats = append(stats, ts)
	}
	return stats, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Now returns the current UTC time formatted for storage.
func Now() string {
	return timeNow().UTC().Format(TimeLayout)
}

// TimeLayout is the fixed-width UTC layout for stored timestamps. Every
// value has the same length so text ordering matches time ordering.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timeNow is a package-level variable for testability.
var timeNow = time.Now
