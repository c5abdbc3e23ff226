package ffmpeg

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ZacxDev/video-overlay/internal/logging"
	"github.com/pkg/errors"
)

// LoadOptions configures engine initialization
type LoadOptions struct {
	// Sources are ffmpeg binaries tried in order: the primary first, then
	// fallbacks. Each may be a path or a name looked up on PATH.
	Sources []string

	// WorkDir is the working storage directory; empty means a temporary one
	WorkDir string

	// MultiThread allows the multi-worker variant when the host has more
	// than one CPU
	MultiThread bool

	Logger *slog.Logger
}

// DefaultSources is used when no source is configured
var DefaultSources = []string{"ffmpeg"}

// Load initializes the engine: it selects the worker variant, resolves the
// first usable binary source and claims the working storage.
func Load(ctx context.Context, opts LoadOptions) (*Local, error) {
	logger := logging.OrNop(opts.Logger)

	threads := 1
	variant := "single-worker"
	if opts.MultiThread && runtime.NumCPU() > 1 {
		threads = GetOptimalThreadCount()
		variant = "multi-worker"
	}

	sources := opts.Sources
	if len(sources) == 0 {
		sources = DefaultSources
	}

	var failures []string
	for i, source := range sources {
		binary, err := resolveBinary(ctx, source)
		if err != nil {
			failures = append(failures, err.Error())
			if i < len(sources)-1 {
				logger.Warn("engine source failed, trying fallback", "source", source, "error", err)
			}
			continue
		}

		local, err := NewLocal(opts.WorkDir, binary, threads, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("engine loaded", "binary", binary, "variant", variant, "threads", threads, "work_dir", local.Dir())
		return local, nil
	}
	return nil, errors.Wrapf(ErrEngineUnavailable, "all sources failed: %s", strings.Join(failures, "; "))
}

// resolveBinary finds source and checks that it runs
func resolveBinary(ctx context.Context, source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", errors.New("empty engine source")
	}
	binary, err := exec.LookPath(source)
	if err != nil {
		return "", errors.Wrapf(err, "locate %s", source)
	}
	out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-version").Output()
	if err != nil {
		return "", errors.Wrapf(err, "run %s -version", binary)
	}
	if !strings.HasPrefix(string(out), "ffmpeg version") {
		return "", errors.Errorf("%s is not an ffmpeg binary", binary)
	}
	return binary, nil
}
