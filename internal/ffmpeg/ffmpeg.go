package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/ZacxDev/video-overlay/internal/logging"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const lockFileName = ".engine.lock"

// VideoMetadata contains metadata about a video file
type VideoMetadata struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
}

// Local runs a local ffmpeg binary against a private working directory
type Local struct {
	dir     string
	ownsDir bool
	binary  string
	ffprobe string
	threads int
	lock    *flock.Flock
	logger  *slog.Logger
}

// NewLocal claims dir as working storage. An empty dir creates a temporary
// directory that is removed on Close.
func NewLocal(dir, binary string, threads int, logger *slog.Logger) (*Local, error) {
	owns := false
	if strings.TrimSpace(dir) == "" {
		tmp, err := os.MkdirTemp("", "video_overlay_")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create working storage")
		}
		dir = tmp
		owns = true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create working storage %s", dir)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock working storage %s", dir)
	}
	if !locked {
		return nil, fmt.Errorf("working storage %s is in use by another process", dir)
	}

	if threads < 1 {
		threads = 1
	}
	return &Local{
		dir:     dir,
		ownsDir: owns,
		binary:  binary,
		ffprobe: FFprobePath(binary),
		threads: threads,
		lock:    lock,
		logger:  logging.OrNop(logger),
	}, nil
}

// Dir returns the working storage directory
func (l *Local) Dir() string {
	return l.dir
}

// Threads returns the encoder thread count of the loaded variant
func (l *Local) Threads() int {
	return l.threads
}

// Close releases the working storage lock and removes a temporary directory
func (l *Local) Close() error {
	if err := l.lock.Unlock(); err != nil {
		return errors.Wrap(err, "failed to unlock working storage")
	}
	if l.ownsDir {
		return os.RemoveAll(l.dir)
	}
	return os.Remove(filepath.Join(l.dir, lockFileName))
}

func (l *Local) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || name == lockFileName {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}
	return filepath.Join(l.dir, name), nil
}

// WriteFile stores data under name
func (l *Local) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", name)
	}
	return nil
}

// ReadFile returns the full contents of name
func (l *Local) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := l.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", name)
	}
	return data, nil
}

// DeleteFile removes name
func (l *Local) DeleteFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := l.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(ErrNotFound, "%s", name)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to delete %s", name)
	}
	return nil
}

// ListDir lists the regular files in working storage
func (l *Local) ListDir(ctx context.Context) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list working storage")
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == lockFileName {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), Size: info.Size()})
	}
	return files, nil
}

// Transcode runs one filter job. It is not cancellable: once started it runs
// until ffmpeg exits.
func (l *Local) Transcode(ctx context.Context, job Transcode, onProgress ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	inputPath, err := l.path(job.Input)
	if err != nil {
		return err
	}
	outputPath, err := l.path(job.Output)
	if err != nil {
		return err
	}

	var duration float64
	if metadata, err := GetVideoMetadata(ctx, l.ffprobe, inputPath); err != nil {
		l.logger.Info("could not read input metadata, progress will not be reported", "input", job.Input, "ffprobe", l.ffprobe, "error", err)
	} else {
		duration = metadata.Duration
		l.logger.Debug("probed input",
			"duration", metadata.Duration,
			"resolution", fmt.Sprintf("%dx%d", metadata.Width, metadata.Height),
			"codec", metadata.Codec)
	}

	args := transcodeStream(inputPath, outputPath, job, l.threads).GetArgs()
	l.logger.Debug("running ffmpeg", "binary", l.binary, "args", strings.Join(args, " "))

	stderr := newTailBuffer(stderrTailLines)
	cmd := exec.Command(l.binary, args...)
	cmd.Dir = l.dir
	cmd.Stdout = newProgressWriter(duration, onProgress)
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		tail := stderr.String()
		for _, line := range strings.Split(tail, "\n") {
			if line != "" {
				l.logger.Debug("ffmpeg", "line", line)
			}
		}
		if tail != "" {
			return errors.Wrapf(err, "ffmpeg failed: %s", lastLine(tail))
		}
		return errors.Wrap(err, "ffmpeg failed")
	}
	return nil
}

// transcodeStream builds the ffmpeg invocation for job. Progress goes to
// stdout as key=value lines.
func transcodeStream(inputPath, outputPath string, job Transcode, threads int) *ffmpeg.Stream {
	outputKwargs := job.OutputKwArgs()
	outputKwargs["threads"] = threads

	return ffmpeg.Input(inputPath).
		Output(outputPath, outputKwargs).
		GlobalArgs("-progress", "pipe:1", "-nostats").
		OverWriteOutput()
}

// FFprobePath returns the ffprobe installed next to the ffmpeg binary,
// falling back to ffprobe on PATH
func FFprobePath(binary string) string {
	if filepath.Base(binary) != binary {
		candidate := filepath.Join(filepath.Dir(binary), "ffprobe"+filepath.Ext(binary))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return "ffprobe"
}

func ffprobeArgs(inputPath string) []string {
	args := ffmpeg.ConvertKwargsToCmdLineArgs(ffmpeg.KwArgs{
		"show_format":  "",
		"show_streams": "",
		"of":           "json",
	})
	return append(args, inputPath)
}

// GetVideoMetadata retrieves metadata about a video file
func GetVideoMetadata(ctx context.Context, ffprobe, inputPath string) (*VideoMetadata, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffprobe, ffprobeArgs(inputPath)...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if tail := strings.TrimSpace(stderr.String()); tail != "" {
			return nil, fmt.Errorf("error probing video: %v: %s", err, lastLine(tail))
		}
		return nil, fmt.Errorf("error probing video: %v", err)
	}
	return parseProbe(string(out))
}

func parseProbe(probe string) (*VideoMetadata, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return nil, errors.WithStack(err)
	}

	streams, ok := data["streams"].([]interface{})
	if !ok || len(streams) == 0 {
		return nil, fmt.Errorf("no streams found in video")
	}

	var videoStream map[string]interface{}
	for _, stream := range streams {
		s, ok := stream.(map[string]interface{})
		if !ok {
			continue
		}
		if codecType, _ := s["codec_type"].(string); codecType == "video" {
			videoStream = s
			break
		}
	}

	if videoStream == nil {
		return nil, fmt.Errorf("no video stream found")
	}

	var duration float64

	// First try video stream duration
	if durationStr, ok := videoStream["duration"].(string); ok {
		if d, err := strconv.ParseFloat(strings.TrimSpace(durationStr), 64); err == nil {
			duration = d
		}
	}

	// If stream duration is not available, try format duration
	if duration == 0 {
		if format, ok := data["format"].(map[string]interface{}); ok {
			if durationStr, ok := format["duration"].(string); ok {
				if d, err := strconv.ParseFloat(strings.TrimSpace(durationStr), 64); err == nil {
					duration = d
				}
			}
		}
	}

	if duration == 0 {
		return nil, fmt.Errorf("could not determine video duration")
	}

	width, _ := videoStream["width"].(float64)
	height, _ := videoStream["height"].(float64)
	codec, _ := videoStream["codec_name"].(string)

	return &VideoMetadata{
		Duration: duration,
		Width:    int(width),
		Height:   int(height),
		Codec:    codec,
	}, nil
}

// GetOptimalThreadCount returns the encoder thread count for the
// multi-worker variant
func GetOptimalThreadCount() int {
	cpuCount := runtime.NumCPU()
	// Use 75% of available cores to prevent overload
	return int(math.Max(1, float64(cpuCount)*0.75))
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// tailBuffer keeps the last n lines written to it
type tailBuffer struct {
	n     int
	buf   bytes.Buffer
	lines []string
}

const stderrTailLines = 20

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf.Write(p)
	for {
		line, err := t.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write
			t.buf.Reset()
			t.buf.WriteString(line)
			break
		}
		t.push(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

func (t *tailBuffer) push(line string) {
	t.lines = append(t.lines, line)
	if len(t.lines) > t.n {
		t.lines = t.lines[len(t.lines)-t.n:]
	}
}

func (t *tailBuffer) String() string {
	lines := t.lines
	if rest := strings.TrimSpace(t.buf.String()); rest != "" {
		lines = append(append([]string(nil), lines...), rest)
	}
	return strings.Join(lines, "\n")
}
