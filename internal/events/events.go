// Package events publishes video lifecycle events.
package events

import (
	"context"
	"errors"
	"time"
)

// Event types
const (
	TypeUploaded  = "video.uploaded"
	TypeTrimmed   = "video.trimmed"
	TypeSubtitled = "video.subtitled"
	TypeRendered  = "video.rendered"
	TypeDeleted   = "video.deleted"
)

// Event describes one completed lifecycle step.
type Event struct {
	Type       string    `json:"type"`
	VideoID    int64     `json:"video_id"`
	Status     string    `json:"status,omitempty"`
	Path       string    `json:"path,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Callers treat errors as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
