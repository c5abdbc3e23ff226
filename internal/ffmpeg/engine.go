package ffmpeg

import (
	"context"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var (
	// ErrEngineUnavailable is returned when no engine source could be loaded
	ErrEngineUnavailable = errors.New("ffmpeg engine unavailable")

	// ErrNotFound is returned when a working storage entry does not exist
	ErrNotFound = errors.New("file not found in working storage")

	// ErrInvalidName is returned for names that are not plain file names
	ErrInvalidName = errors.New("invalid working storage file name")
)

// FileInfo is one entry of the engine's working storage
type FileInfo struct {
	Name string
	Size int64
}

// ProgressFunc receives the engine's fractional progress. Values are not
// clamped; callers decide what to do with values outside [0,1].
type ProgressFunc func(fraction float64)

// Runtime is the capability interface of a loaded engine. All names refer
// to entries of the engine's private working storage.
type Runtime interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	Transcode(ctx context.Context, job Transcode, onProgress ProgressFunc) error
	ListDir(ctx context.Context) ([]FileInfo, error)
	ReadFile(ctx context.Context, name string) ([]byte, error)
	DeleteFile(ctx context.Context, name string) error
}

// Transcode is one filter run: input and output names, the filter graph and
// the encode recipe.
type Transcode struct {
	Input       string
	Output      string
	VideoFilter string
	AudioCodec  string
	VideoCodec  string
	Preset      string
	CRF         int
	PixelFormat string
}

// LosslessTranscode applies the filter graph, copies audio verbatim and
// re-encodes video losslessly with the slowest compression preset
func LosslessTranscode(input, output, filterGraph string) Transcode {
	return Transcode{
		Input:       input,
		Output:      output,
		VideoFilter: filterGraph,
		AudioCodec:  "copy",
		VideoCodec:  "libx264",
		Preset:      "veryslow",
		CRF:         0,
		PixelFormat: "yuv420p",
	}
}

// OutputKwArgs returns the output options in ffmpeg-go form
func (t Transcode) OutputKwArgs() ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"vf":      t.VideoFilter,
		"c:a":     t.AudioCodec,
		"c:v":     t.VideoCodec,
		"preset":  t.Preset,
		"crf":     t.CRF,
		"pix_fmt": t.PixelFormat,
	}
}
