package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schema.sql creates the session and frame tables for the local backend.
//
//go:embed schema.sql
var schemaSQL string

// SQLite stores sessions in a local database file.
type SQLite struct {
	db *sql.DB
}

var _ Sink = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close(ctx context.Context) error {
	return s.db.Close()
}

func (s *SQLite) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, solution, source, source_id, static_image_mode, started_at_ns)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID.String(), sess.Solution, sess.Source, sess.SourceID, sess.StaticImageMode, sess.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SQLite) InsertFrame(ctx context.Context, sessionID uuid.UUID, f Frame) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO frame_results (session_id, frame_index, timestamp_us, summary, error)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID.String(), f.Index, nullableTimestamp(f.Timestamp), summaryText(f), f.Error)
	if err != nil {
		return fmt.Errorf("failed to insert frame %d: %w", f.Index, err)
	}
	return nil
}

func (s *SQLite) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.solution, s.source, s.source_id, s.static_image_mode, s.started_at_ns,
			COUNT(f.id), COALESCE(SUM(CASE WHEN f.error <> '' THEN 1 ELSE 0 END), 0)
		FROM sessions s
		LEFT JOIN frame_results f ON f.session_id = s.id
		GROUP BY s.id
		ORDER BY s.started_at_ns DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var id string
		var startedNs int64
		if err := rows.Scan(&id, &sess.Solution, &sess.Source, &sess.SourceID, &sess.StaticImageMode, &startedNs, &sess.Frames, &sess.Errors); err != nil {
			return nil, err
		}
		if sess.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		sess.StartedAt = time.Unix(0, startedNs).UTC()
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *SQLite) Frames(ctx context.Context, sessionID uuid.UUID) ([]Frame, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame_index, timestamp_us, summary, error
		FROM frame_results WHERE session_id = ? ORDER BY frame_index
	`, sessionID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var ts sql.NullInt64
		var summary sql.NullString
		if err := rows.Scan(&f.Index, &ts, &summary, &f.Error); err != nil {
			return nil, err
		}
		f.Timestamp = timestampFrom(nil)
		if ts.Valid {
			f.Timestamp = timestampFrom(&ts.Int64)
		}
		if summary.Valid {
			f.Summary = json.RawMessage(summary.String)
		}
		frames = append(frames, f)
	}
	return frames, rows.Err()
}

// Reset drops and recreates the tables.
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		DROP TABLE IF EXISTS frame_results;
		DROP TABLE IF EXISTS sessions;
	`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}
