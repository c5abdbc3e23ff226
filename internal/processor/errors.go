package processor

import (
	"github.com/pkg/errors"
)

// ValidationKind classifies input problems that stop a job before it starts
type ValidationKind string

const (
	KindMissingFile     ValidationKind = "missing_file"
	KindUnsupportedType ValidationKind = "unsupported_type"
	KindFileTooLarge    ValidationKind = "file_too_large"
	KindEmptyText       ValidationKind = "empty_text"
	KindInvalidConfig   ValidationKind = "invalid_config"
	KindEngineNotReady  ValidationKind = "engine_not_ready"
	KindJobActive       ValidationKind = "job_active"
)

// ValidationError is reported immediately and never reaches the failure path
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrNoFile          = &ValidationError{Kind: KindMissingFile, Message: "please select a file"}
	ErrUnsupportedType = &ValidationError{Kind: KindUnsupportedType, Message: "unsupported file format, please select a video file (mp4, mov, avi, webm)"}
	ErrFileTooLarge    = &ValidationError{Kind: KindFileTooLarge, Message: "file size too large, maximum size is 2GB"}
	ErrEmptyText       = &ValidationError{Kind: KindEmptyText, Message: "please enter at least a song title or artist name"}
	ErrEngineNotReady  = &ValidationError{Kind: KindEngineNotReady, Message: "ffmpeg is not loaded, wait for it to load"}
	ErrJobActive       = &ValidationError{Kind: KindJobActive, Message: "a job is already being processed"}
)

// IsValidation reports whether err is an input validation error
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// Artifact integrity errors: the engine can exit cleanly without producing
// usable output
var (
	ErrOutputMissing = errors.New("output file was not created by ffmpeg")
	ErrOutputEmpty   = errors.New("output file is empty, ffmpeg may have failed silently")
	ErrReadEmpty     = errors.New("output file is empty, processing may have failed")
)

// ErrNothingToRetry is returned by Retry when no failed request is kept
var ErrNothingToRetry = errors.New("no previous request to retry")
