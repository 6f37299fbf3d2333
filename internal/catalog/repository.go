package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Repository interface {
	CreateVideo(ctx context.Context, v *Video) error
	GetVideo(ctx context.Context, id int64) (*Video, error)
	ListVideos(ctx context.Context) ([]*Video, error)
	UpdateVideo(ctx context.Context, id int64, u VideoUpdate) error
	DeleteVideo(ctx context.Context, id int64) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const videoColumns = "id, title, filename, path, size, duration, width, height, status, created_at"

// CreateVideo inserts v and sets its ID. A zero CreatedAt is set to now.
func (r *SQLiteRepository) CreateVideo(ctx context.Context, v *Video) error {
	if !v.Status.Valid() {
		return fmt.Errorf("invalid status %q", v.Status)
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC().Truncate(time.Second)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO videos (title, filename, path, size, duration, width, height, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.Title, v.Filename, v.Path, v.Size, v.Duration, v.Width, v.Height, string(v.Status), v.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = id
	return nil
}

// GetVideo returns nil, nil when no video has the id.
func (r *SQLiteRepository) GetVideo(ctx context.Context, id int64) (*Video, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = ?", id)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListVideos returns every video in insertion order.
func (r *SQLiteRepository) ListVideos(ctx context.Context) ([]*Video, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+videoColumns+" FROM videos ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	videos := []*Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// UpdateVideo merges the non-nil fields of u. It returns ErrNotFound when no
// video has the id.
func (r *SQLiteRepository) UpdateVideo(ctx context.Context, id int64, u VideoUpdate) error {
	var sets []string
	var args []any
	if u.Path != nil {
		sets = append(sets, "path = ?")
		args = append(args, *u.Path)
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return fmt.Errorf("invalid status %q", *u.Status)
		}
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
	}

	if len(sets) == 0 {
		v, err := r.GetVideo(ctx, id)
		if err != nil {
			return err
		}
		if v == nil {
			return ErrNotFound
		}
		return nil
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, "UPDATE videos SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// DeleteVideo returns ErrNotFound when no video has the id.
func (r *SQLiteRepository) DeleteVideo(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM videos WHERE id = ?", id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*Video, error) {
	var v Video
	var status, createdAt string

	err := row.Scan(&v.ID, &v.Title, &v.Filename, &v.Path, &v.Size, &v.Duration, &v.Width, &v.Height, &status, &createdAt)
	if err != nil {
		return nil, err
	}

	v.Status = Status(status)
	v.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &v, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
