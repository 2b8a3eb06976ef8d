package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/codebuildervaibhav/highlight-clips/internal/types"
)

// SQLiteStore persists clip jobs in a SQLite database
type SQLiteStore struct {
	db  *sql.DB
	now nowFunc
}

// NewSQLiteStore opens (and migrates) the job database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection serializes writers, which makes each Update atomic
	db.SetMaxOpenConns(1)

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS clip_jobs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL,
		source_type TEXT NOT NULL,
		data TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clip_jobs_created_at ON clip_jobs(created_at);
	CREATE INDEX IF NOT EXISTS idx_clip_jobs_status ON clip_jobs(status);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create inserts a fresh pending job under a new id
func (s *SQLiteStore) Create(ctx context.Context, job types.NewJob) (types.ClipJob, error) {
	record := newRecord(uuid.New().String(), job, s.now)

	data, err := json.Marshal(record)
	if err != nil {
		return types.ClipJob{}, fmt.Errorf("failed to encode job: %w", err)
	}

	query := `
	INSERT INTO clip_jobs (id, status, progress, source_type, data, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query, record.ID, string(record.Status), record.Progress,
		string(record.SourceType), string(data), record.CreatedAt.UnixNano(), record.UpdatedAt.UnixNano())
	if err != nil {
		return types.ClipJob{}, fmt.Errorf("failed to save job: %w", err)
	}

	return record, nil
}

// Get loads a job by id
func (s *SQLiteStore) Get(ctx context.Context, id string) (types.ClipJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM clip_jobs WHERE id = ?`, id)
	return scanJob(row, id)
}

// Update merges the present fields of update inside a transaction
func (s *SQLiteStore) Update(ctx context.Context, id string, update types.JobUpdate) (types.ClipJob, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.ClipJob{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := scanJob(tx.QueryRowContext(ctx, `SELECT data FROM clip_jobs WHERE id = ?`, id), id)
	if err != nil {
		return types.ClipJob{}, err
	}

	merged := current.Apply(update, s.now())
	data, err := json.Marshal(merged)
	if err != nil {
		return types.ClipJob{}, fmt.Errorf("failed to encode job: %w", err)
	}

	query := `
	UPDATE clip_jobs SET status = ?, progress = ?, data = ?, updated_at = ?
	WHERE id = ?
	`
	if _, err := tx.ExecContext(ctx, query, string(merged.Status), merged.Progress, string(data),
		merged.UpdatedAt.UnixNano(), id); err != nil {
		return types.ClipJob{}, fmt.Errorf("failed to update job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.ClipJob{}, fmt.Errorf("failed to commit job update: %w", err)
	}
	return merged, nil
}

// GetClip finds one clip of a job
func (s *SQLiteStore) GetClip(ctx context.Context, jobID, clipID string) (types.Clip, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return types.Clip{}, err
	}
	clip, ok := job.FindClip(clipID)
	if !ok {
		return types.Clip{}, clipNotFound(jobID, clipID)
	}
	return clip, nil
}

// List returns up to limit jobs, newest first
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]types.ClipJob, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `SELECT data FROM clip_jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []types.ClipJob{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		var job types.ClipJob
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanJob(row *sql.Row, id string) (types.ClipJob, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ClipJob{}, jobNotFound(id)
		}
		return types.ClipJob{}, fmt.Errorf("failed to get job: %w", err)
	}

	var job types.ClipJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return types.ClipJob{}, fmt.Errorf("failed to decode job: %w", err)
	}
	if job.Clips == nil {
		job.Clips = []types.Clip{}
	}
	return job, nil
}
