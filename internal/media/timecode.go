package media

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Seconds is a request-supplied time offset. JSON numbers are kept as their
// decimal value and JSON strings as the text the client sent. Nothing is
// validated here: odd values travel to ffmpeg unchanged and fail there.
type Seconds string

func (s *Seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Seconds(str)
		return nil
	}
	// Numbers travel as their value, so 1e1 and 10 reach ffmpeg alike.
	if f, err := strconv.ParseFloat(string(data), 64); err == nil {
		*s = Seconds(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*s = Seconds(data)
	return nil
}

func (s Seconds) MarshalJSON() ([]byte, error) {
	if f, ok := s.Float(); ok {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(string(s))
}

func (s Seconds) String() string {
	return string(s)
}

// Float parses the value; ok is false for anything that is not a finite number.
func (s Seconds) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Span returns end-start formatted for ffmpeg's -t. When either side is not
// numeric the result is "NaN", which ffmpeg rejects.
func Span(start, end Seconds) string {
	a, okA := start.Float()
	b, okB := end.Float()
	if !okA || !okB {
		return "NaN"
	}
	return strconv.FormatFloat(b-a, 'f', -1, 64)
}
