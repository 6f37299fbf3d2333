package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Journal records events in the video_events table so a video's history
// can be read back after the record itself has moved on.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Publish(ctx context.Context, e Event) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO video_events (video_id, type, status, path, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.VideoID, e.Type, nullString(e.Status), nullString(e.Path), e.OccurredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to journal event: %w", err)
	}
	return nil
}

// List returns a video's events, oldest first.
func (j *Journal) List(ctx context.Context, videoID int64) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT video_id, type, status, path, created_at
		FROM video_events WHERE video_id = ? ORDER BY id
	`, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var status, path sql.NullString
		var createdAt string
		if err := rows.Scan(&e.VideoID, &e.Type, &status, &path, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Status = status.String
		e.Path = path.String
		e.OccurredAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error { return nil }

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
