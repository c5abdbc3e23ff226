package processor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ZacxDev/video-overlay/internal/config"
	"github.com/ZacxDev/video-overlay/internal/ffmpeg"
	"github.com/ZacxDev/video-overlay/internal/filter"
	"github.com/ZacxDev/video-overlay/internal/logging"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Progress checkpoints of a job
const (
	progressStaged      = 10
	progressFilterReady = 20
	progressCompiled    = 30
	progressTranscode   = 40
	progressTranscoded  = 90
	progressDone        = 100
)

// EngineHandle is the process-wide engine the orchestrator runs jobs on
type EngineHandle interface {
	State() ffmpeg.LoadState
	Load(ctx context.Context) (ffmpeg.Runtime, error)
}

// Listener receives a snapshot of the job after every change
type Listener func(Job)

// Request is what the user submits
type Request struct {
	Source *SourceFile
	Config config.OverlayConfig
	Title  string
	Artist string
}

// Result describes a succeeded job
type Result struct {
	Job        Job
	OutputName string
	SavedPath  string
	MediaType  string
	Size       int
}

// Options configures an Orchestrator
type Options struct {
	Engine   EngineHandle
	Saver    Saver
	Listener Listener
	Logger   *slog.Logger

	// ResetDelay is how long a succeeded job is kept before it resets to
	// idle. Zero uses config.SuccessResetDelay.
	ResetDelay time.Duration
}

// Orchestrator runs at most one overlay job at a time
type Orchestrator struct {
	engine     EngineHandle
	saver      Saver
	listener   Listener
	logger     *slog.Logger
	resetDelay time.Duration

	// notifyMu orders listener calls; mu guards the fields below
	notifyMu   sync.Mutex
	mu         sync.Mutex
	job        Job
	active     bool
	last       *Request
	resetTimer *time.Timer
}

// NewOrchestrator creates an orchestrator in idle state
func NewOrchestrator(opts Options) *Orchestrator {
	delay := opts.ResetDelay
	if delay == 0 {
		delay = config.SuccessResetDelay
	}
	return &Orchestrator{
		engine:     opts.Engine,
		saver:      opts.Saver,
		listener:   opts.Listener,
		logger:     logging.OrNop(opts.Logger),
		resetDelay: delay,
		job:        Job{Stage: StageIdle},
	}
}

// Current returns a snapshot of the current job
func (o *Orchestrator) Current() Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.job
}

// Process validates req and, if it is acceptable, runs it to completion.
// Validation errors are returned without touching the engine or the current
// job. There is no cancellation once the job has started; ctx only bounds
// waiting for the engine and file operations.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Result, error) {
	if err := o.begin(req); err != nil {
		return nil, err
	}
	return o.run(ctx, req)
}

// Retry re-submits the most recent request. A failed job keeps its request
// so the user does not have to enter it again.
func (o *Orchestrator) Retry(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	last := o.last
	o.mu.Unlock()
	if last == nil {
		return nil, ErrNothingToRetry
	}
	return o.Process(ctx, *last)
}

// begin performs the Idle -> Validating checks and claims the active slot
func (o *Orchestrator) begin(req Request) error {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	if o.active {
		o.mu.Unlock()
		return ErrJobActive
	}
	if err := o.validate(req); err != nil {
		o.mu.Unlock()
		return err
	}

	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
	if o.job.Stage != StageIdle && o.job.Stage != StageSucceeded {
		o.mu.Unlock()
		return fmt.Errorf("cannot start a job from stage %s", o.job.Stage)
	}

	o.active = true
	saved := req
	o.last = &saved
	o.job = Job{
		ID:     uuid.NewString(),
		Source: req.Source,
		// Snapshot: later edits to the caller's config do not reach this job
		Config: config.WithDefaults(req.Config),
		Title:  req.Title,
		Artist: req.Artist,
		Stage:  StageValidating,
	}
	o.job.setStatus(fmt.Sprintf(
		"Processing %s file... This may take a while. Note: Output file may be larger due to lossless encoding.",
		humanize.Bytes(uint64(req.Source.Size))))
	snap := o.job
	o.mu.Unlock()

	o.logger.Info("job started", "job_id", snap.ID, "file", req.Source.Name, "size", req.Source.Size)
	o.emit(snap)
	return nil
}

func (o *Orchestrator) validate(req Request) error {
	if req.Source == nil || req.Source.Open == nil {
		return ErrNoFile
	}
	if req.Source.Size > config.MaxSourceFileSize {
		return ErrFileTooLarge
	}
	if o.engine == nil || o.engine.State() == ffmpeg.StateUnloaded {
		return ErrEngineNotReady
	}
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Artist) == "" {
		return ErrEmptyText
	}
	if err := config.Validate(req.Config); err != nil {
		return &ValidationError{Kind: KindInvalidConfig, Message: err.Error()}
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, req Request) (res *Result, err error) {
	staged := SanitizeFilename(req.Source.Name)
	output := OutputName(staged)

	var rt ffmpeg.Runtime
	defer func() {
		if err != nil {
			o.fail(ctx, rt, staged, err)
		}
		o.mu.Lock()
		o.active = false
		o.mu.Unlock()
	}()

	job := o.Current()
	logger := o.logger.With("job_id", job.ID)

	if o.engine.State() != ffmpeg.StateReady {
		if err := o.enter(StageEngineLoading, "Waiting for ffmpeg to load..."); err != nil {
			return nil, err
		}
	}
	rt, err = o.engine.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "ffmpeg failed to load")
	}

	// Staging
	if err := o.enter(StageStaging, "Loading file into ffmpeg..."); err != nil {
		return nil, err
	}
	data, err := req.Source.ReadAll()
	if err != nil {
		return nil, err
	}
	if err := rt.WriteFile(ctx, staged, data); err != nil {
		return nil, errors.Wrapf(err, "failed to stage %s", staged)
	}
	logger.Debug("staged input", "name", staged, "bytes", len(data))
	o.progress(progressStaged)

	// Filtering
	o.progress(progressFilterReady)
	if err := o.enter(StageFiltering, "Applying text overlay..."); err != nil {
		return nil, err
	}
	graph, err := filter.Compile(job.Config, job.Title, job.Artist, job.Config.OverlayWindowSeconds)
	if err != nil {
		return nil, err
	}
	logger.Debug("compiled filter", "filter", graph)
	o.progressStatus(progressCompiled, "Rendering video with text overlay...")

	o.progressStatus(progressTranscode, "Running ffmpeg... This may take several minutes for large files.")
	if err := rt.Transcode(ctx, ffmpeg.LosslessTranscode(staged, output, graph), o.engineProgress); err != nil {
		return nil, errors.Wrap(err, "ffmpeg processing failed")
	}
	o.progressStatus(progressTranscoded, "Finalizing output...")

	// Verifying
	if err := o.enter(StageVerifying, ""); err != nil {
		return nil, err
	}
	size, err := verifyOutput(ctx, rt, output)
	if err != nil {
		return nil, errors.Wrap(err, "failed to verify output file")
	}
	logger.Debug("output created", "name", output, "size", size)

	// Retrieving
	if err := o.enter(StageRetrieving, ""); err != nil {
		return nil, err
	}
	outputData, err := rt.ReadFile(ctx, output)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", output)
	}
	if len(outputData) == 0 {
		return nil, ErrReadEmpty
	}

	// Downloading
	if err := o.enter(StageDownloading, ""); err != nil {
		return nil, err
	}
	artifact := Artifact{
		Name:      output,
		MediaType: MediaTypeFor(Extension(output)),
		Data:      outputData,
	}
	savedPath, err := o.saver.Save(ctx, artifact)
	if err != nil {
		return nil, err
	}

	// Cleanup
	if err := o.enter(StageCleanup, ""); err != nil {
		return nil, err
	}
	cleanupCtx := context.WithoutCancel(ctx)
	for _, name := range []string{output, staged} {
		if err := rt.DeleteFile(cleanupCtx, name); err != nil {
			logger.Warn("cleanup failed", "name", name, "error", err)
		}
	}

	final := o.succeed(fmt.Sprintf("Success! Video with text overlay saved to %s", savedPath))
	logger.Info("job succeeded", "output", savedPath, "size", len(outputData))
	return &Result{
		Job:        final,
		OutputName: output,
		SavedPath:  savedPath,
		MediaType:  artifact.MediaType,
		Size:       len(outputData),
	}, nil
}

// verifyOutput checks the listing for the output. Missing and empty outputs
// are distinct failures.
func verifyOutput(ctx context.Context, rt ffmpeg.Runtime, output string) (int64, error) {
	files, err := rt.ListDir(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range files {
		if f.Name != output {
			continue
		}
		if f.Size == 0 {
			return 0, errors.Wrapf(ErrOutputEmpty, "%s", output)
		}
		return f.Size, nil
	}
	return 0, errors.Wrapf(ErrOutputMissing, "%s", output)
}

// engineProgress maps the engine's [0,1] fraction into the transcode band.
// Out of range values are ignored.
func (o *Orchestrator) engineProgress(fraction float64) {
	if fraction < 0 || fraction > 1 || math.IsNaN(fraction) {
		return
	}
	span := progressTranscoded - progressTranscode
	o.progress(progressTranscode + int(math.Round(fraction*float64(span))))
}

// fail records the error, sweeps working storage and returns to idle. The
// request stays on the job so it can be retried.
func (o *Orchestrator) fail(ctx context.Context, rt ffmpeg.Runtime, staged string, cause error) {
	message := fmt.Sprintf("Error processing file: %v", cause)
	o.update(func(j *Job) error {
		if err := j.transition(StageFailed); err != nil {
			return err
		}
		j.setError(message)
		return nil
	})
	o.logger.Error("job failed", "job_id", o.Current().ID, "error", cause)

	if rt != nil {
		o.sweep(context.WithoutCancel(ctx), rt, staged)
	}

	o.update(func(j *Job) error {
		return j.transition(StageIdle)
	})
}

// sweep deletes the staged input and anything that looks like an output.
// Individual failures are logged and ignored.
func (o *Orchestrator) sweep(ctx context.Context, rt ffmpeg.Runtime, staged string) {
	files, err := rt.ListDir(ctx)
	if err != nil {
		o.logger.Warn("cleanup listing failed", "error", err)
		if err := rt.DeleteFile(ctx, staged); err != nil {
			o.logger.Debug("cleanup delete failed", "name", staged, "error", err)
		}
		return
	}
	for _, f := range files {
		if f.Name != staged && !strings.Contains(f.Name, config.OutputSuffix) {
			continue
		}
		if err := rt.DeleteFile(ctx, f.Name); err != nil {
			o.logger.Debug("cleanup delete failed", "name", f.Name, "error", err)
		}
	}
}

func (o *Orchestrator) succeed(status string) Job {
	var snap Job
	o.update(func(j *Job) error {
		if err := j.transition(StageSucceeded); err != nil {
			return err
		}
		j.Progress = progressDone
		j.setStatus(status)
		snap = *j
		return nil
	})

	id := snap.ID
	o.mu.Lock()
	o.resetTimer = time.AfterFunc(o.resetDelay, func() { o.resetAfterSuccess(id) })
	o.mu.Unlock()
	return snap
}

// resetAfterSuccess clears the succeeded job, including the user's input
func (o *Orchestrator) resetAfterSuccess(id string) {
	o.update(func(j *Job) error {
		if j.ID != id || j.Stage != StageSucceeded {
			return errStale
		}
		*j = Job{Stage: StageIdle}
		// update holds mu while fn runs
		o.last = nil
		return nil
	})
}

var errStale = errors.New("job changed before reset")

func (o *Orchestrator) enter(stage Stage, status string) error {
	return o.update(func(j *Job) error {
		if err := j.transition(stage); err != nil {
			return err
		}
		if status != "" {
			j.setStatus(status)
		}
		return nil
	})
}

func (o *Orchestrator) progress(percent int) {
	o.progressStatus(percent, "")
}

func (o *Orchestrator) progressStatus(percent int, status string) {
	o.update(func(j *Job) error {
		j.setProgress(percent)
		if status != "" {
			j.setStatus(status)
		}
		return nil
	})
}

// update applies fn to the job and notifies the listener on success
func (o *Orchestrator) update(fn func(j *Job) error) error {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	err := fn(&o.job)
	snap := o.job
	o.mu.Unlock()

	if err != nil {
		return err
	}
	o.emit(snap)
	return nil
}

// emit must be called with notifyMu held
func (o *Orchestrator) emit(snap Job) {
	if o.listener != nil {
		o.listener(snap)
	}
}
