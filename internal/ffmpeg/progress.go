package ffmpeg

import (
	"bytes"
	"strconv"
	"strings"
)

// progressWriter parses ffmpeg's "-progress" key=value stream and reports
// out_time as a fraction of the input duration
type progressWriter struct {
	duration   float64
	onProgress ProgressFunc
	partial    bytes.Buffer
}

func newProgressWriter(duration float64, onProgress ProgressFunc) *progressWriter {
	return &progressWriter{duration: duration, onProgress: onProgress}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.partial.Write(p)
	for {
		line, err := w.partial.ReadString('\n')
		if err != nil {
			w.partial.Reset()
			w.partial.WriteString(line)
			break
		}
		w.handle(strings.TrimSpace(line))
	}
	return len(p), nil
}

func (w *progressWriter) handle(line string) {
	if w.onProgress == nil {
		return
	}
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return
	}
	switch key {
	// out_time_ms is in microseconds as well, a long-standing ffmpeg quirk
	case "out_time_us", "out_time_ms":
		if w.duration <= 0 {
			return
		}
		us, err := strconv.ParseFloat(value, 64)
		if err != nil {
			// "N/A" before the first frame
			return
		}
		w.onProgress(us / 1e6 / w.duration)
	case "progress":
		if value == "end" {
			w.onProgress(1)
		}
	}
}
