package media

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Metadata is the normalized result of probing a media file.
type Metadata struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Format   string  `json:"format"`
	Bitrate  int64   `json:"bitrate"`
}

// ffprobeOutput is the subset of `ffprobe -show_format -show_streams -of json` we read.
type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format *struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
		BitRate    string `json:"bit_rate"`
	} `json:"format"`
}

// ParseProbe normalizes ffprobe JSON. A missing duration becomes 0, and width
// and height come from the first video stream or stay 0 when there is none.
func ParseProbe(data []byte) (*Metadata, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: cannot parse ffprobe output: %v", ErrProbe, err)
	}
	if raw.Format == nil {
		return nil, fmt.Errorf("%w: ffprobe output has no format section", ErrProbe)
	}

	md := &Metadata{
		Format: raw.Format.FormatName,
	}
	if d, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil {
		md.Duration = d
	}
	if br, err := strconv.ParseInt(raw.Format.BitRate, 10, 64); err == nil {
		md.Bitrate = br
	}

	for _, s := range raw.Streams {
		if s.CodecType == "video" {
			md.Width = s.Width
			md.Height = s.Height
			break
		}
	}

	return md, nil
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
}
