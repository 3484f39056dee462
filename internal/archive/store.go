package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"ticketsmith/internal/generation"
	"ticketsmith/internal/services"
)

// Entry is one archived generation result.
type Entry struct {
	ID                 int64         `json:"id"`
	RunID              string        `json:"run_id"`
	Model              string        `json:"model"`
	ItemIndex          int           `json:"item_index"`
	Summary            string        `json:"summary"`
	Description        string        `json:"description"`
	AcceptanceCriteria string        `json:"acceptance_criteria"`
	RawResponse        string        `json:"raw_response"`
	FallbackUsed       bool          `json:"fallback_used"`
	Failed             bool          `json:"failed"`
	Error              string        `json:"error,omitempty"`
	Duration           time.Duration `json:"duration"`
	CreatedAt          time.Time     `json:"created_at"`
}

// Store keeps generation results in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the archive database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "archive", "open", "path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure archive directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores result under runID.
func (s *Store) Save(ctx context.Context, runID, model string, result generation.Result) error {
	var errText sql.NullString
	if result.Err != nil {
		errText = sql.NullString{String: result.Err.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (
            run_id, model, item_index, summary, description, acceptance_criteria,
            raw_response, fallback_used, failed, error, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		model,
		result.Index,
		result.Summary,
		result.Description,
		result.AcceptanceCriteria,
		result.RawResponse,
		boolToInt(result.FallbackUsed),
		boolToInt(result.Failed),
		errText,
		result.Duration.Milliseconds(),
		s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.query(ctx, selectColumns+" ORDER BY id DESC LIMIT ?", limit)
}

// Run returns the entries of one run in item order.
func (s *Store) Run(ctx context.Context, runID string) ([]Entry, error) {
	return s.query(ctx, selectColumns+" WHERE run_id = ? ORDER BY item_index, id", runID)
}

const selectColumns = `SELECT id, run_id, model, item_index, summary, description, acceptance_criteria,
    raw_response, fallback_used, failed, error, duration_ms, created_at FROM generations`

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query generations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry                        Entry
			model, desc, criteria, raw   sql.NullString
			errText                      sql.NullString
			fallback, failed, durationMS int64
			createdAt                    string
		)
		if err := rows.Scan(
			&entry.ID, &entry.RunID, &model, &entry.ItemIndex, &entry.Summary, &desc, &criteria,
			&raw, &fallback, &failed, &errText, &durationMS, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		entry.Model = model.String
		entry.Description = desc.String
		entry.AcceptanceCriteria = criteria.String
		entry.RawResponse = raw.String
		entry.Error = errText.String
		entry.FallbackUsed = fallback != 0
		entry.Failed = failed != 0
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate generations: %w", err)
	}
	return entries, nil
}

// RunRecorder adapts a Store to generation.Recorder for one run.
type RunRecorder struct {
	Store *Store
	RunID string
	Model string
}

// Record implements generation.Recorder.
func (r RunRecorder) Record(ctx context.Context, result generation.Result) error {
	if r.Store == nil {
		return nil
	}
	return r.Store.Save(ctx, r.RunID, r.Model, result)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
