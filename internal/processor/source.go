package processor

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZacxDev/video-overlay/internal/config"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// SourceFile is the user's selected input
type SourceFile struct {
	Name      string
	Size      int64
	MediaType string
	Open      func() (io.ReadCloser, error)
}

var (
	supportedMediaTypes = []string{
		"video/mp4",
		"video/quicktime",
		"video/x-msvideo",
		"video/webm",
	}
	supportedExtensions = []string{"mp4", "mov", "avi", "webm"}
)

// OpenSource checks a file at the input boundary: it must be a supported
// video by media type or extension, and within the size cap
func OpenSource(path string) (*SourceFile, error) {
	if path == "" {
		return nil, ErrNoFile
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoFile
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	if info.IsDir() {
		return nil, ErrNoFile
	}

	var mediaType string
	if mtype, err := mimetype.DetectFile(path); err == nil {
		mediaType = mtype.String()
	}

	src := &SourceFile{
		Name:      filepath.Base(path),
		Size:      info.Size(),
		MediaType: mediaType,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
	if err := CheckSource(src); err != nil {
		return nil, err
	}
	return src, nil
}

// CheckSource applies the type and size checks to an already described file
func CheckSource(src *SourceFile) error {
	if src == nil || src.Open == nil {
		return ErrNoFile
	}
	if !IsSupportedVideo(src.Name, src.MediaType) {
		return ErrUnsupportedType
	}
	if src.Size > config.MaxSourceFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// IsSupportedVideo accepts a known media type, falling back to the extension
func IsSupportedVideo(name, mediaType string) bool {
	// Drop parameters such as "; charset=binary"
	base, _, _ := strings.Cut(mediaType, ";")
	if slices.Contains(supportedMediaTypes, strings.TrimSpace(base)) {
		return true
	}
	return slices.Contains(supportedExtensions, Extension(name))
}

// ReadAll reads the whole source file
func (s *SourceFile) ReadAll() ([]byte, error) {
	rc, err := s.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", s.Name)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", s.Name)
	}
	return data, nil
}
