package catalog

import (
	"time"
)

// Status is the lifecycle tag of a video. It records the last operation that
// succeeded and never gates which operation may run next.
type Status string

const (
	StatusUploaded  Status = "uploaded"
	StatusTrimmed   Status = "trimmed"
	StatusSubtitled Status = "subtitled"
	StatusRendered  Status = "rendered"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUploaded, StatusTrimmed, StatusSubtitled, StatusRendered:
		return true
	default:
		return false
	}
}

// Operation is a transcode step applied to a video's current artifact.
type Operation string

const (
	OpTrim     Operation = "trim"
	OpSubtitle Operation = "subtitle"
	OpRender   Operation = "render"
)

// Status returns the tag a video carries after op succeeds.
func (op Operation) Status() Status {
	switch op {
	case OpTrim:
		return StatusTrimmed
	case OpSubtitle:
		return StatusSubtitled
	case OpRender:
		return StatusRendered
	default:
		return ""
	}
}

type Video struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Duration  float64   `json:"duration"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// VideoUpdate carries the mutable fields; nil fields are left as they are.
type VideoUpdate struct {
	Path   *string
	Status *Status
}

var VideoMimeTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
}

func IsVideoMimeType(contentType string) bool {
	return VideoMimeTypes[contentType]
}
