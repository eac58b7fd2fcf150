package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"sdp-assistant/internal/domain"
)

// Entry is one recorded ask or workflow outcome.
type Entry struct {
	ID            int64  `json:"id"`
	Kind          string `json:"kind"`
	ModelFile     string `json:"modelFile"`
	Prompt        string `json:"prompt"`
	Output        string `json:"output"`
	RunID         string `json:"runId,omitempty"`
	Status        string `json:"status,omitempty"`
	CreatedAtUnix int64  `json:"createdAt"`
}

// Store records completed operations in a local sqlite database so past
// answers and workflow runs survive restarts.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS activity (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			model_file TEXT NOT NULL DEFAULT '',
			prompt TEXT NOT NULL DEFAULT '',
			output TEXT NOT NULL DEFAULT '',
			run_id TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activity_created_at ON activity(created_at DESC);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordAsk stores one answered question.
func (s *Store) RecordAsk(modelFile, prompt, answer string) error {
	_, err := s.db.Exec(
		"INSERT INTO activity(kind, model_file, prompt, output, created_at) VALUES(?, ?, ?, ?, ?)",
		string(domain.OpAsk),
		modelFile,
		prompt,
		answer,
		s.now().Unix(),
	)
	return err
}

// RecordWorkflow stores one completed workflow run.
func (s *Store) RecordWorkflow(modelFile, prompt string, run domain.WorkflowRun) error {
	_, err := s.db.Exec(
		"INSERT INTO activity(kind, model_file, prompt, output, run_id, status, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)",
		string(domain.OpWorkflow),
		modelFile,
		prompt,
		run.Report,
		run.RunID,
		run.DisplayStatus,
		s.now().Unix(),
	)
	return err
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		"SELECT id, kind, model_file, prompt, output, run_id, status, created_at FROM activity ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Kind, &e.ModelFile, &e.Prompt, &e.Output, &e.RunID, &e.Status, &e.CreatedAtUnix); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
