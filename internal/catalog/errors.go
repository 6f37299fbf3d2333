package catalog

import "errors"

var (
	// ErrNotFound means no video has the requested id.
	ErrNotFound = errors.New("video not found")
	// ErrFileMissing means the video exists but its current file is gone.
	ErrFileMissing = errors.New("video file not found")
	// ErrInvalidInput covers rejected uploads and request parameters.
	ErrInvalidInput = errors.New("invalid input")
)
