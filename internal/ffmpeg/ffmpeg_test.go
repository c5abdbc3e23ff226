package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir(), "ffmpeg", 1, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLocalWorkingStorageRoundTrip(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	if err := l.WriteFile(ctx, "clip.mp4", []byte("video")); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := l.WriteFile(ctx, "empty_with_text.mp4", nil); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	files, err := l.ListDir(ctx)
	if err != nil {
		t.Fatalf("ListDir: %v", err)
	}
	sizes := map[string]int64{}
	for _, f := range files {
		sizes[f.Name] = f.Size
	}
	if len(sizes) != 2 || sizes["clip.mp4"] != 5 || sizes["empty_with_text.mp4"] != 0 {
		t.Fatalf("unexpected listing (lock file must be hidden): %+v", files)
	}

	data, err := l.ReadFile(ctx, "clip.mp4")
	if err != nil || string(data) != "video" {
		t.Fatalf("ReadFile = %q, %v", data, err)
	}

	if err := l.DeleteFile(ctx, "clip.mp4"); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if _, err := l.ReadFile(ctx, "clip.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ReadFile after delete error = %v, want ErrNotFound", err)
	}
	if err := l.DeleteFile(ctx, "clip.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteFile error = %v, want ErrNotFound", err)
	}
}

func TestLocalRejectsPathNames(t *testing.T) {
	l := newTestLocal(t)
	for _, name := range []string{"", "../escape.mp4", "sub/dir.mp4", "..", lockFileName} {
		if err := l.WriteFile(context.Background(), name, []byte("x")); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("WriteFile(%q) error = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestLocalWorkingStorageIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := NewLocal(dir, "ffmpeg", 1, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if _, err := NewLocal(dir, "ffmpeg", 1, nil); err == nil {
		t.Fatal("second claim of the same working storage should fail")
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	second, err := NewLocal(dir, "ffmpeg", 1, nil)
	if err != nil {
		t.Fatalf("claim after Close: %v", err)
	}
	_ = second.Close()
}

func TestLocalTemporaryDirRemovedOnClose(t *testing.T) {
	l, err := NewLocal("", "ffmpeg", 0, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if l.Threads() != 1 {
		t.Fatalf("threads = %d, want 1", l.Threads())
	}
	dir := l.Dir()
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("temporary working storage should be removed, stat err = %v", err)
	}
}

func TestTranscodeStreamArgs(t *testing.T) {
	job := LosslessTranscode("in.mp4", "in_with_text.mp4", "drawtext=text='a':x=(150*h/1080)")
	got := transcodeStream("in.mp4", "in_with_text.mp4", job, 4).GetArgs()
	want := []string{
		"-i", "in.mp4",
		"-c:a", "copy",
		"-c:v", "libx264",
		"-crf", "0",
		"-pix_fmt", "yuv420p",
		"-preset", "veryslow",
		"-threads", "4",
		"-vf", "drawtext=text='a':x=(150*h/1080)",
		"in_with_text.mp4",
		"-progress", "pipe:1", "-nostats",
		"-y",
	}
	if strings.Join(got, "\x00") != strings.Join(want, "\x00") {
		t.Fatalf("args = %q\nwant   %q", got, want)
	}
}

func TestFFprobePath(t *testing.T) {
	dir := t.TempDir()
	ffmpegPath := filepath.Join(dir, "ffmpeg")
	if got := FFprobePath(ffmpegPath); got != "ffprobe" {
		t.Fatalf("without a sibling ffprobe, got %q", got)
	}
	ffprobePath := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(ffprobePath, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := FFprobePath(ffmpegPath); got != ffprobePath {
		t.Fatalf("FFprobePath = %q, want %q", got, ffprobePath)
	}
	if got := FFprobePath("ffmpeg"); got != "ffprobe" {
		t.Fatalf("bare name should use PATH, got %q", got)
	}

	l, err := NewLocal(t.TempDir(), ffmpegPath, 1, nil)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	defer l.Close()
	if l.ffprobe != ffprobePath {
		t.Fatalf("Local ffprobe = %q, want %q", l.ffprobe, ffprobePath)
	}
}

func TestFFprobeArgs(t *testing.T) {
	got := strings.Join(ffprobeArgs("clip.mp4"), " ")
	if got != "-of json -show_format -show_streams clip.mp4" {
		t.Fatalf("ffprobe args = %q", got)
	}
}

func TestProgressWriterReportsFractions(t *testing.T) {
	var got []float64
	w := newProgressWriter(10, func(f float64) { got = append(got, f) })

	stream := "frame=1\nout_time_us=N/A\nout_time_us=2500000\nprogress=continue\nout_ti"
	if _, err := w.Write([]byte(stream)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := w.Write([]byte("me_us=5000000\nprogress=end\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := []float64{0.25, 0.5, 1}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("fractions = %v, want %v", got, want)
	}
}

func TestProgressWriterWithoutDuration(t *testing.T) {
	var got []float64
	w := newProgressWriter(0, func(f float64) { got = append(got, f) })
	_, _ = w.Write([]byte("out_time_us=1000000\nprogress=end\n"))
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("without a duration only the end marker is reported, got %v", got)
	}
}

func TestParseProbe(t *testing.T) {
	probe := `{
		"streams": [
			{"codec_type": "audio", "codec_name": "aac"},
			{"codec_type": "video", "codec_name": "h264", "width": 3840, "height": 2160}
		],
		"format": {"duration": "12.5"}
	}`
	meta, err := parseProbe(probe)
	if err != nil {
		t.Fatalf("parseProbe: %v", err)
	}
	if meta.Duration != 12.5 || meta.Width != 3840 || meta.Height != 2160 || meta.Codec != "h264" {
		t.Fatalf("unexpected metadata: %+v", meta)
	}

	if _, err := parseProbe(`{"streams": [{"codec_type": "audio"}]}`); err == nil {
		t.Fatal("expected error without a video stream")
	}
}

func TestTailBufferKeepsLastLines(t *testing.T) {
	tb := newTailBuffer(2)
	_, _ = tb.Write([]byte("one\ntwo\nthr"))
	_, _ = tb.Write([]byte("ee\nError opening output\n"))
	if got := tb.String(); got != "three\nError opening output" {
		t.Fatalf("tail = %q", got)
	}
	if lastLine(tb.String()) != "Error opening output" {
		t.Fatalf("lastLine = %q", lastLine(tb.String()))
	}
}

func TestLoadFailsWithoutUsableSource(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-ffmpeg")
	_, err := Load(context.Background(), LoadOptions{Sources: []string{missing, missing + "-fallback"}})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("Load error = %v, want ErrEngineUnavailable", err)
	}
}
