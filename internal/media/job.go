package media

import (
	"fmt"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Job kinds
const (
	KindTrim     = "trim"
	KindSubtitle = "subtitle"
	KindRender   = "render"
)

// Render settings: a widely playable codec with a fast, lossy preset.
const (
	RenderVideoCodec = "libx264"
	RenderPreset     = "veryfast"
)

// Overlay text styling
const (
	overlayFontColor = "white"
	overlayFontSize  = 24
	overlayX         = "(w-text_w)/2"
	overlayY         = "h-100"
)

// Job is a single ffmpeg invocation: one input file in, one output file out.
type Job struct {
	Kind       string
	Input      string
	Output     string
	InputArgs  ffmpeg.KwArgs
	OutputArgs ffmpeg.KwArgs
}

// Args returns the ffmpeg command line (without the binary) for the job.
func (j Job) Args() []string {
	in := ffmpeg.KwArgs{}
	for k, v := range j.InputArgs {
		in[k] = v
	}
	out := ffmpeg.KwArgs{}
	for k, v := range j.OutputArgs {
		out[k] = v
	}
	return ffmpeg.Input(j.Input, in).
		Output(j.Output, out).
		OverWriteOutput().
		GetArgs()
}

// TrimJob seeks to start and keeps end-start seconds.
func TrimJob(input, output string, start, end Seconds) Job {
	return Job{
		Kind:       KindTrim,
		Input:      input,
		Output:     output,
		InputArgs:  ffmpeg.KwArgs{"ss": start.String()},
		OutputArgs: ffmpeg.KwArgs{"t": Span(start, end)},
	}
}

// Overlay describes burned-in text shown between Start and End.
type Overlay struct {
	Text  string
	Start Seconds
	End   Seconds
}

// Filter returns the drawtext expression for the overlay, escaped for -vf.
func (o Overlay) Filter() (string, error) {
	if err := ValidateOverlayText(o.Text); err != nil {
		return "", err
	}
	enable := fmt.Sprintf("between(t,%s,%s)", o.Start, o.End)
	return fmt.Sprintf("drawtext=text=%s:expansion=none:fontcolor=%s:fontsize=%d:x=%s:y=%s:enable=%s",
		EscapeFilterValue(o.Text),
		overlayFontColor,
		overlayFontSize,
		overlayX,
		overlayY,
		EscapeFilterValue(enable),
	), nil
}

// SubtitleJob burns the overlay text into the video.
func SubtitleJob(input, output string, o Overlay) (Job, error) {
	filter, err := o.Filter()
	if err != nil {
		return Job{}, err
	}
	return Job{
		Kind:       KindSubtitle,
		Input:      input,
		Output:     output,
		OutputArgs: ffmpeg.KwArgs{"vf": filter},
	}, nil
}

// RenderJob re-encodes the input with the fixed render codec and preset.
func RenderJob(input, output string) Job {
	return Job{
		Kind:   KindRender,
		Input:  input,
		Output: output,
		OutputArgs: ffmpeg.KwArgs{
			"c:v":    RenderVideoCodec,
			"preset": RenderPreset,
		},
	}
}
