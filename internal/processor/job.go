package processor

import (
	"fmt"

	"github.com/ZacxDev/video-overlay/internal/config"
)

// Stage is the state of the active job
type Stage string

const (
	StageIdle          Stage = "idle"
	StageValidating    Stage = "validating"
	StageEngineLoading Stage = "engine_loading"
	StageStaging       Stage = "staging"
	StageFiltering     Stage = "filtering"
	StageVerifying     Stage = "verifying"
	StageRetrieving    Stage = "retrieving"
	StageDownloading   Stage = "downloading"
	StageCleanup       Stage = "cleanup"
	StageSucceeded     Stage = "succeeded"
	StageFailed        Stage = "failed"
)

// Job is one overlay request and its progress. Status and Error are never
// both set.
type Job struct {
	ID       string
	Source   *SourceFile
	Config   config.OverlayConfig
	Title    string
	Artist   string
	Stage    Stage
	Progress int
	Status   string
	Error    string
}

// Active reports whether the job is between validation and a terminal stage
func (j Job) Active() bool {
	switch j.Stage {
	case StageIdle, StageSucceeded, StageFailed:
		return false
	default:
		return true
	}
}

// isValidTransition enforces the allowed job state machine edges
func isValidTransition(from, to Stage) bool {
	switch from {
	case StageIdle, StageSucceeded:
		return to == StageValidating || (from == StageSucceeded && to == StageIdle)
	case StageValidating:
		return to == StageEngineLoading || to == StageStaging || to == StageFailed
	case StageEngineLoading:
		return to == StageStaging || to == StageFailed
	case StageStaging:
		return to == StageFiltering || to == StageFailed
	case StageFiltering:
		return to == StageVerifying || to == StageFailed
	case StageVerifying:
		return to == StageRetrieving || to == StageFailed
	case StageRetrieving:
		return to == StageDownloading || to == StageFailed
	case StageDownloading:
		return to == StageCleanup || to == StageFailed
	case StageCleanup:
		return to == StageSucceeded || to == StageFailed
	case StageFailed:
		return to == StageIdle
	default:
		return false
	}
}

func (j *Job) transition(to Stage) error {
	if !isValidTransition(j.Stage, to) {
		return fmt.Errorf("invalid transition: %s -> %s", j.Stage, to)
	}
	j.Stage = to
	return nil
}

// setProgress only ever raises progress within a job
func (j *Job) setProgress(percent int) {
	if percent > 100 {
		percent = 100
	}
	if percent > j.Progress {
		j.Progress = percent
	}
}

func (j *Job) setStatus(status string) {
	j.Status = status
	j.Error = ""
}

func (j *Job) setError(message string) {
	j.Error = message
	j.Status = ""
}
