// Package store persists tracking sessions and per-frame summaries.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andresmejia3/trackpoint/internal/packet"
)

// Session is one run of a solution over a source.
type Session struct {
	ID              uuid.UUID
	Solution        string
	Source          string
	SourceID        string
	StaticImageMode bool
	StartedAt       time.Time
	// Frames is filled in by ListSessions.
	Frames int
	// Errors counts frames that produced no result.
	Errors int
}

// Frame is the stored outcome of one frame. Summary holds a JSON document
// describing the result; Error is set instead when the frame failed.
type Frame struct {
	Index     int
	Timestamp packet.Timestamp
	Summary   json.RawMessage
	Error     string
}

// Sink is the persistence backend used by the CLI.
type Sink interface {
	CreateSession(ctx context.Context, s Session) error
	InsertFrame(ctx context.Context, sessionID uuid.UUID, f Frame) error
	ListSessions(ctx context.Context) ([]Session, error)
	Frames(ctx context.Context, sessionID uuid.UUID) ([]Frame, error)
	Reset(ctx context.Context) error
	Close(ctx context.Context) error
}

// NewSession returns a Session with a fresh id.
func NewSession(solution, source, sourceID string, static bool) Session {
	return Session{
		ID:              uuid.New(),
		Solution:        solution,
		Source:          source,
		SourceID:        sourceID,
		StaticImageMode: static,
		StartedAt:       time.Now().UTC(),
	}
}

// Open picks a backend from the URL scheme: postgres:// and postgresql://
// use PostgreSQL, sqlite:// or a bare path use a local SQLite file.
func Open(ctx context.Context, url string) (Sink, error) {
	switch {
	case url == "":
		return nil, fmt.Errorf("store url is empty")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		pg, err := NewPostgres(ctx, url)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	lite, err := NewSQLite(strings.TrimPrefix(url, "sqlite://"))
	if err != nil {
		return nil, err
	}
	return lite, nil
}

// nullableTimestamp maps the unset sentinel to SQL NULL.
func nullableTimestamp(ts packet.Timestamp) *int64 {
	if !ts.IsSet() {
		return nil
	}
	v := int64(ts)
	return &v
}

func timestampFrom(v *int64) packet.Timestamp {
	if v == nil {
		return packet.Unset
	}
	return packet.Timestamp(*v)
}

func summaryText(f Frame) *string {
	if len(f.Summary) == 0 {
		return nil
	}
	s := string(f.Summary)
	return &s
}
