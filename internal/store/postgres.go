package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Postgres manages the PostgreSQL connection.
type Postgres struct {
	conn *pgx.Conn
}

var _ Sink = (*Postgres)(nil)

// NewPostgres establishes a connection to the database and ensures the schema is initialized.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initPostgresSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Postgres{conn: conn}, nil
}

// initPostgresSchema creates the necessary tables if they don't exist (Auto-Migration).
func initPostgresSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			solution TEXT NOT NULL,
			source TEXT NOT NULL,
			source_id TEXT NOT NULL DEFAULT '',
			static_image_mode BOOLEAN NOT NULL DEFAULT FALSE,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS frame_results (
			id BIGSERIAL PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame_index INT NOT NULL,
			timestamp_us BIGINT,
			summary JSONB,
			error TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS frame_results_session_id_idx ON frame_results (session_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Postgres) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// CreateSession registers a session.
func (s *Postgres) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO sessions (id, solution, source, source_id, static_image_mode, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, sess.ID.String(), sess.Solution, sess.Source, sess.SourceID, sess.StaticImageMode, sess.StartedAt)
	return err
}

// InsertFrame saves the outcome of one frame. A frame without a timestamp is stored with NULL.
func (s *Postgres) InsertFrame(ctx context.Context, sessionID uuid.UUID, f Frame) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO frame_results (session_id, frame_index, timestamp_us, summary, error)
		VALUES ($1, $2, $3, $4::jsonb, $5)
	`, sessionID.String(), f.Index, nullableTimestamp(f.Timestamp), summaryText(f), f.Error)
	return err
}

// ListSessions returns all sessions, newest first, with their frame counts.
func (s *Postgres) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT s.id::text, s.solution, s.source, s.source_id, s.static_image_mode, s.started_at,
			COUNT(f.id), COUNT(f.id) FILTER (WHERE f.error <> '')
		FROM sessions s
		LEFT JOIN frame_results f ON f.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var id string
		if err := rows.Scan(&id, &sess.Solution, &sess.Source, &sess.SourceID, &sess.StaticImageMode, &sess.StartedAt, &sess.Frames, &sess.Errors); err != nil {
			return nil, err
		}
		if sess.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Frames returns the stored frames of a session in frame order.
func (s *Postgres) Frames(ctx context.Context, sessionID uuid.UUID) ([]Frame, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT frame_index, timestamp_us, summary::text, error
		FROM frame_results WHERE session_id = $1 ORDER BY frame_index
	`, sessionID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var ts *int64
		var summary *string
		if err := rows.Scan(&f.Index, &ts, &summary, &f.Error); err != nil {
			return nil, err
		}
		f.Timestamp = timestampFrom(ts)
		if summary != nil {
			f.Summary = json.RawMessage(*summary)
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Postgres) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `
		DROP TABLE IF EXISTS frame_results CASCADE;
		DROP TABLE IF EXISTS sessions CASCADE;
	`)
	if err != nil {
		return err
	}
	return initPostgresSchema(ctx, s.conn)
}
