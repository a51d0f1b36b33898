package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PGStore implements Store using Postgres. The original resume is kept in
// sessions.resume_file.
type PGStore struct {
	DB *sql.DB
}

// Create inserts an empty session.
func (r *PGStore) Create(ctx context.Context, name string, now time.Time) (Session, error) {
	const query = `
INSERT INTO sessions (name, created_at, updated_at)
VALUES ($1, $2, $2)
ON CONFLICT (name) DO NOTHING`

	res, err := r.DB.ExecContext(ctx, query, name, now)
	if err != nil {
		return Session{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Session{}, err
	}
	if n == 0 {
		return Session{}, ErrExists
	}
	return Session{Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// Get returns session metadata.
func (r *PGStore) Get(ctx context.Context, name string) (Session, error) {
	const query = `
SELECT name, job_description, resume_text, model_preference, resume_file_name, created_at, updated_at
FROM sessions
WHERE name = $1`

	var s Session
	err := r.DB.QueryRowContext(ctx, query, name).Scan(
		&s.Name,
		&s.JobDescription,
		&s.ResumeText,
		&s.ModelPreference,
		&s.ResumeFile,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// Put upserts session metadata.
func (r *PGStore) Put(ctx context.Context, s Session) error {
	const query = `
INSERT INTO sessions (name, job_description, resume_text, model_preference, resume_file_name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (name) DO UPDATE SET
    job_description = EXCLUDED.job_description,
    resume_text = EXCLUDED.resume_text,
    model_preference = EXCLUDED.model_preference,
    resume_file_name = EXCLUDED.resume_file_name,
    created_at = EXCLUDED.created_at,
    updated_at = EXCLUDED.updated_at`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		s.Name,
		s.JobDescription,
		s.ResumeText,
		s.ModelPreference,
		s.ResumeFile,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

// SaveResume stores the original resume bytes.
func (r *PGStore) SaveResume(ctx context.Context, name string, data []byte) error {
	const query = `
UPDATE sessions
SET resume_file = $2, resume_file_name = $3, updated_at = $4
WHERE name = $1`

	res, err := r.DB.ExecContext(ctx, query, name, data, ResumeFileName, time.Now().UTC())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// AppendEntries inserts log entries in one transaction.
func (r *PGStore) AppendEntries(ctx context.Context, name string, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE name = $1`, name).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	const insert = `
INSERT INTO session_conversations (id, session_name, ts, question, response, had_screenshot)
VALUES ($1, $2, $3, $4, $5, $6)`
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insert, e.ID, name, e.Timestamp, e.Question, e.Response, e.HadScreenshot); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}
	return tx.Commit()
}

// Conversation returns the log in insertion order.
func (r *PGStore) Conversation(ctx context.Context, name string) ([]Entry, error) {
	if _, err := r.Get(ctx, name); err != nil {
		return nil, err
	}

	const query = `
SELECT id, ts, question, response, had_screenshot
FROM session_conversations
WHERE session_name = $1
ORDER BY seq ASC`

	rows, err := r.DB.QueryContext(ctx, query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Question, &e.Response, &e.HadScreenshot); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// List returns all sessions.
func (r *PGStore) List(ctx context.Context) ([]Session, error) {
	const query = `
SELECT name, job_description, resume_text, model_preference, resume_file_name, created_at, updated_at
FROM sessions
ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.Name, &s.JobDescription, &s.ResumeText, &s.ModelPreference, &s.ResumeFile, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a session and, by cascade, its log.
func (r *PGStore) Delete(ctx context.Context, name string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE name = $1`, name)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
