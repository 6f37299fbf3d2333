package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/heimdex/heimdex-studio/internal/db"
)

func setupTestDB(t *testing.T) (*db.DB, *SQLiteRepository) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return database, NewRepository(database.Conn())
}

func newVideo(title string) *Video {
	return &Video{
		Title:    title,
		Filename: "1700000000000-" + title,
		Path:     "/media/1700000000000-" + title,
		Size:     1024,
		Duration: 10.5,
		Width:    1280,
		Height:   720,
		Status:   StatusUploaded,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	v := newVideo("a.mp4")
	if err := repo.CreateVideo(ctx, v); err != nil {
		t.Fatalf("CreateVideo() error = %v", err)
	}
	if v.ID == 0 {
		t.Fatal("CreateVideo() did not assign an id")
	}
	if v.CreatedAt.IsZero() {
		t.Error("CreateVideo() did not set CreatedAt")
	}

	got, err := repo.GetVideo(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetVideo() returned nil")
	}
	if got.Title != v.Title || got.Path != v.Path || got.Size != v.Size ||
		got.Duration != v.Duration || got.Width != v.Width || got.Height != v.Height ||
		got.Status != StatusUploaded {
		t.Errorf("GetVideo() = %+v, want %+v", got, v)
	}
	if !got.CreatedAt.Equal(v.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, v.CreatedAt)
	}
}

func TestRepository_CreateRejectsUnknownStatus(t *testing.T) {
	_, repo := setupTestDB(t)
	v := newVideo("a.mp4")
	v.Status = "archived"
	if err := repo.CreateVideo(context.Background(), v); err == nil {
		t.Error("CreateVideo() with unknown status should fail")
	}
}

func TestRepository_GetMissingReturnsNil(t *testing.T) {
	_, repo := setupTestDB(t)
	got, err := repo.GetVideo(context.Background(), 999)
	if err != nil {
		t.Fatalf("GetVideo() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetVideo() = %+v, want nil", got)
	}
}

func TestRepository_List(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	empty, err := repo.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListVideos() on empty store = %v, want empty slice", empty)
	}

	for _, title := range []string{"a.mp4", "b.mp4", "c.mov"} {
		if err := repo.CreateVideo(ctx, newVideo(title)); err != nil {
			t.Fatalf("CreateVideo() error = %v", err)
		}
	}
	videos, err := repo.ListVideos(ctx)
	if err != nil {
		t.Fatalf("ListVideos() error = %v", err)
	}
	if len(videos) != 3 {
		t.Errorf("ListVideos() returned %d videos, want 3", len(videos))
	}
}

func TestRepository_Update(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	v := newVideo("a.mp4")
	v.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.CreateVideo(ctx, v)

	path := "/media/trimmed-1.mp4"
	status := StatusTrimmed
	if err := repo.UpdateVideo(ctx, v.ID, VideoUpdate{Path: &path, Status: &status}); err != nil {
		t.Fatalf("UpdateVideo() error = %v", err)
	}

	got, _ := repo.GetVideo(ctx, v.ID)
	if got.Path != path || got.Status != StatusTrimmed {
		t.Errorf("after update got path=%q status=%q", got.Path, got.Status)
	}
	if got.Title != v.Title || got.Filename != v.Filename || got.Size != v.Size || !got.CreatedAt.Equal(v.CreatedAt) {
		t.Errorf("update touched immutable fields: %+v", got)
	}

	// Partial update leaves the other field alone.
	rendered := StatusRendered
	repo.UpdateVideo(ctx, v.ID, VideoUpdate{Status: &rendered})
	got, _ = repo.GetVideo(ctx, v.ID)
	if got.Path != path || got.Status != StatusRendered {
		t.Errorf("after partial update got path=%q status=%q", got.Path, got.Status)
	}

	if err := repo.UpdateVideo(ctx, v.ID, VideoUpdate{}); err != nil {
		t.Errorf("empty UpdateVideo() error = %v", err)
	}
}

func TestRepository_UpdateMissing(t *testing.T) {
	_, repo := setupTestDB(t)
	path := "/x"
	if err := repo.UpdateVideo(context.Background(), 42, VideoUpdate{Path: &path}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateVideo() error = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateVideo(context.Background(), 42, VideoUpdate{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty UpdateVideo() error = %v, want ErrNotFound", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	_, repo := setupTestDB(t)
	ctx := context.Background()

	v := newVideo("a.mp4")
	repo.CreateVideo(ctx, v)

	if err := repo.DeleteVideo(ctx, v.ID); err != nil {
		t.Fatalf("DeleteVideo() error = %v", err)
	}
	if got, _ := repo.GetVideo(ctx, v.ID); got != nil {
		t.Error("video still present after delete")
	}
	if err := repo.DeleteVideo(ctx, v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteVideo() error = %v, want ErrNotFound", err)
	}
}

func TestOperation_Status(t *testing.T) {
	tests := []struct {
		op   Operation
		want Status
	}{
		{OpTrim, StatusTrimmed},
		{OpSubtitle, StatusSubtitled},
		{OpRender, StatusRendered},
		{Operation("crop"), ""},
	}
	for _, tt := range tests {
		if got := tt.op.Status(); got != tt.want {
			t.Errorf("%s.Status() = %q, want %q", tt.op, got, tt.want)
		}
	}
}
