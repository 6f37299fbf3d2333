// Package storage manages the flat media directory that holds uploads and
// transcode artifacts.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	maxNameLen   = 120
	defaultExt   = ".mp4"
	fallbackName = "video"
)

// ErrTooLarge is returned by Save when the content exceeds the limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// StoredFile describes a file written by Save.
type StoredFile struct {
	OriginalName string
	Filename     string
	Path         string
	Size         int64
}

// Dir is a flat directory of media files.
type Dir struct {
	root string
	now  func() time.Time
}

// NewDir ensures the directory exists and returns it with an absolute root.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid media dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &Dir{root: abs, now: time.Now}, nil
}

func (d *Dir) Root() string {
	return d.root
}

// UploadPath returns the stored filename and absolute path for an upload:
// <unix-ms>-<sanitised original name>.
func (d *Dir) UploadPath(originalName string) (filename, path string) {
	name := SanitizeName(filepath.Base(originalName), maxNameLen)
	if name == "" || name == "." || name == ".." {
		name = fallbackName + defaultExt
	}
	filename = strconv.FormatInt(d.now().UnixMilli(), 10) + "-" + name
	return filename, filepath.Join(d.root, filename)
}

// Save streams r into a new upload file. Content over limit bytes (when
// limit > 0) is rejected with ErrTooLarge and nothing is left on disk.
func (d *Dir) Save(originalName string, r io.Reader, limit int64) (*StoredFile, error) {
	filename, path := d.UploadPath(originalName)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		// Same name in the same millisecond.
		filename = strings.Replace(filename, "-", "-"+shortToken()+"-", 1)
		path = filepath.Join(d.root, filename)
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create upload file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && limit > 0 && n > limit {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		if errors.Is(err, ErrTooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to write upload: %w", err)
	}

	return &StoredFile{
		OriginalName: originalName,
		Filename:     filename,
		Path:         path,
		Size:         n,
	}, nil
}

// ArtifactPath returns a fresh output path for an operation on input:
// <op>-<unix-ms>-<8 hex><ext>, keeping the input's extension.
func (d *Dir) ArtifactPath(op, input string) string {
	ext := strings.ToLower(filepath.Ext(input))
	if ext == "" {
		ext = defaultExt
	}
	name := fmt.Sprintf("%s-%d-%s%s", op, d.now().UnixMilli(), shortToken(), ext)
	return filepath.Join(d.root, name)
}

func shortToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Exists reports whether path names an existing regular file.
func Exists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// Remove deletes path. A file that is already gone is not an error.
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SanitizeName keeps letters, digits and a few punctuation marks, replacing
// anything else with '_' and dropping control characters.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if isAllowedNameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	cleaned := strings.TrimSpace(b.String())
	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			// Keep the extension when cutting a long name.
			ext := []rune(filepath.Ext(cleaned))
			if len(ext) >= maxLen {
				ext = nil
			}
			cleaned = string(runes[:maxLen-len(ext)]) + string(ext)
		}
	}
	return cleaned
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}
