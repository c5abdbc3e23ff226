package videoprocessor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ZacxDev/video-overlay/internal/config"
	"github.com/ZacxDev/video-overlay/internal/ffmpeg"
	"github.com/ZacxDev/video-overlay/internal/filter"
	"github.com/ZacxDev/video-overlay/internal/logging"
	"github.com/ZacxDev/video-overlay/internal/platform"
	"github.com/ZacxDev/video-overlay/internal/processor"
	"github.com/ZacxDev/video-overlay/pkg/types"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
)

// LineOverrides edits one line of the custom preset. Nil fields keep their
// current value.
type LineOverrides struct {
	OffsetX  *float64
	OffsetY  *float64
	FontSize *float64
	Weight   *string
}

// CustomOverrides edits the custom preset field by field
type CustomOverrides struct {
	Title                LineOverrides
	Artist               LineOverrides
	TextColor            *string
	OutlineColor         *string
	OutlineWidth         *float64
	OverlayWindowSeconds *float64
}

// VideoOverlayOptions defines options for burning a title and artist into a
// video
type VideoOverlayOptions struct {
	InputPath string
	OutputDir string
	Preset    string
	Title     string
	Artist    string

	// Base is the named preset the custom preset starts from
	Base   string
	Custom CustomOverrides

	// ConfigPath is an optional TOML file. Command line values win over it.
	ConfigPath string

	FFmpeg          string
	FFmpegFallbacks []string
	WorkDir         string
	SingleThread    bool

	// Open reveals the saved file with the system handler
	Open      bool
	Verbose   bool
	LogFormat string

	// OnProgress receives every job update
	OnProgress func(types.Progress)

	// Logger overrides the logger built from Verbose and LogFormat
	Logger *slog.Logger
}

// GetSupportedPresets returns the list of supported overlay presets
func GetSupportedPresets() []string {
	return platform.GetSupportedPlatforms()
}

// PresetConfig returns the geometry of a named preset
func PresetConfig(name string) (config.OverlayConfig, string, error) {
	p, err := platform.Get(name)
	if err != nil {
		return config.OverlayConfig{}, "", err
	}
	return p.Config(), p.GetDisplayName(), nil
}

// AddTextOverlay renders opts.Title and opts.Artist onto the input video and
// returns the path of the saved output
func AddTextOverlay(ctx context.Context, opts *VideoOverlayOptions) (string, error) {
	logger, err := newLogger(opts)
	if err != nil {
		return "", err
	}

	file, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return "", err
	}
	cfg, preset, err := resolveConfig(opts, file)
	if err != nil {
		return "", err
	}
	logger.Debug("resolved overlay config", "preset", preset, "config", fmt.Sprintf("%+v", cfg))

	// Cheap boundary checks before anything touches the engine
	src, err := processor.OpenSource(opts.InputPath)
	if err != nil {
		return "", err
	}

	loadOpts := engineOptions(opts, file, logger)
	handle := ffmpeg.NewHandle(func(ctx context.Context) (ffmpeg.Runtime, error) {
		local, err := ffmpeg.Load(ctx, loadOpts)
		if err != nil {
			return nil, err
		}
		return local, nil
	})
	defer func() {
		if err := handle.Close(); err != nil {
			logger.Warn("failed to release engine", "error", err)
		}
	}()
	handle.Start(ctx)

	outputDir := firstNonEmpty(opts.OutputDir, file.Output.Dir, ".")
	orch := processor.NewOrchestrator(processor.Options{
		Engine:   handle,
		Saver:    processor.DirSaver{Dir: outputDir},
		Listener: progressListener(opts.OnProgress),
		Logger:   logger,
	})

	res, err := orch.Process(ctx, processor.Request{
		Source: src,
		Config: cfg,
		Title:  opts.Title,
		Artist: opts.Artist,
	})
	if errors.Is(err, processor.ErrEngineNotReady) && handle.Err() != nil {
		// The load already failed; its error says more
		return "", handle.Err()
	}
	if err != nil {
		return "", err
	}

	if opts.Open {
		if err := browser.OpenFile(res.SavedPath); err != nil {
			logger.Warn("could not open output", "path", res.SavedPath, "error", err)
		}
	}
	return res.SavedPath, nil
}

// CompileFilter returns the filter expression AddTextOverlay would run
func CompileFilter(opts *VideoOverlayOptions) (string, error) {
	file, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return "", err
	}
	cfg, _, err := resolveConfig(opts, file)
	if err != nil {
		return "", err
	}
	if err := config.Validate(cfg); err != nil {
		return "", err
	}
	cfg = config.WithDefaults(cfg)
	return filter.Compile(cfg, opts.Title, opts.Artist, cfg.OverlayWindowSeconds)
}

// Layout evaluates the overlay for a frame of the given height. Text height
// depends on the font, so Bottom is where the text's bottom edge sits.
func Layout(opts *VideoOverlayOptions, height int) ([]types.LinePlacement, error) {
	if height <= 0 {
		return nil, fmt.Errorf("invalid frame height %d", height)
	}
	file, err := config.LoadFile(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, _, err := resolveConfig(opts, file)
	if err != nil {
		return nil, err
	}
	cfg = config.WithDefaults(cfg)

	h := float64(height)
	var out []types.LinePlacement
	add := func(name string, line config.LineStyle, text string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		d := filter.Directive(cfg, line, text, cfg.OverlayWindowSeconds)
		p := types.LinePlacement{
			Line:     name,
			Text:     text,
			X:        d.X.Eval(h),
			Bottom:   d.Y.Offset.Eval(h),
			FontSize: d.FontSize.Eval(h),
		}
		if d.Outline != nil {
			p.Outline = d.Outline.Width
		}
		out = append(out, p)
	}
	add("title", cfg.Title, opts.Title)
	add("artist", cfg.Artist, opts.Artist)
	if len(out) == 0 {
		return nil, filter.ErrNothingToRender
	}
	return out, nil
}

// resolveConfig picks the preset and applies custom edits. Edits only apply
// to the custom preset; named presets are fixed.
func resolveConfig(opts *VideoOverlayOptions, file *config.File) (config.OverlayConfig, string, error) {
	name := strings.ToLower(firstNonEmpty(opts.Preset, file.Preset, string(types.PresetYouTube)))
	p, err := getPreset(name)
	if err != nil {
		return config.OverlayConfig{}, "", err
	}

	cfg := p.Config()
	if !platform.IsCustom(name) {
		if opts.Custom.set() || strings.TrimSpace(opts.Base) != "" {
			return config.OverlayConfig{}, "", fmt.Errorf("custom overlay settings require the %q preset", types.PresetCustom)
		}
		return cfg, name, nil
	}

	if baseName := strings.ToLower(firstNonEmpty(opts.Base, file.Base)); baseName != "" {
		base, err := getPreset(baseName)
		if err != nil {
			return config.OverlayConfig{}, "", errors.Wrap(err, "base preset")
		}
		cfg = base.Config()
	}

	edits := opts.Custom.overlay()
	if err := config.ValidateOverlay(edits); err != nil {
		return config.OverlayConfig{}, "", err
	}
	cfg = file.Resolve(cfg)
	cfg = (&config.File{Overlay: edits}).Resolve(cfg)
	return cfg, name, nil
}

func getPreset(name string) (platform.Preset, error) {
	p, err := platform.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%v (supported: %s)", err, strings.Join(GetSupportedPresets(), ", "))
	}
	return p, nil
}

func (c CustomOverrides) set() bool {
	return c.Title.set() || c.Artist.set() ||
		c.TextColor != nil || c.OutlineColor != nil ||
		c.OutlineWidth != nil || c.OverlayWindowSeconds != nil
}

// overlay converts the edits to the same shape as the config file, so both
// go through one validation and one merge
func (c CustomOverrides) overlay() config.OverlayFile {
	return config.OverlayFile{
		Title:                c.Title.line(),
		Artist:               c.Artist.line(),
		TextColor:            c.TextColor,
		OutlineColor:         c.OutlineColor,
		OutlineWidth:         c.OutlineWidth,
		OverlayWindowSeconds: c.OverlayWindowSeconds,
	}
}

func (l LineOverrides) set() bool {
	return l.OffsetX != nil || l.OffsetY != nil || l.FontSize != nil || l.Weight != nil
}

func (l LineOverrides) line() *config.LineFile {
	if !l.set() {
		return nil
	}
	return &config.LineFile{
		OffsetX:  l.OffsetX,
		OffsetY:  l.OffsetY,
		FontSize: l.FontSize,
		Weight:   l.Weight,
	}
}

func engineOptions(opts *VideoOverlayOptions, file *config.File, logger *slog.Logger) ffmpeg.LoadOptions {
	var sources []string
	if primary := firstNonEmpty(opts.FFmpeg, file.Engine.FFmpeg); primary != "" {
		sources = append(sources, primary)
	}
	fallbacks := opts.FFmpegFallbacks
	if len(fallbacks) == 0 {
		fallbacks = file.Engine.Fallbacks
	}
	sources = append(sources, fallbacks...)
	if len(sources) == 0 {
		sources = ffmpeg.DefaultSources
	}

	return ffmpeg.LoadOptions{
		Sources:     sources,
		WorkDir:     firstNonEmpty(opts.WorkDir, file.Engine.WorkDir),
		MultiThread: !(opts.SingleThread || file.Engine.SingleThread),
		Logger:      logger,
	}
}

func progressListener(fn func(types.Progress)) processor.Listener {
	if fn == nil {
		return nil
	}
	return func(j processor.Job) {
		fn(types.Progress{
			JobID:   j.ID,
			Stage:   string(j.Stage),
			Percent: j.Progress,
			Status:  j.Status,
			Error:   j.Error,
		})
	}
}

func newLogger(opts *VideoOverlayOptions) (*slog.Logger, error) {
	if opts.Logger != nil {
		return opts.Logger, nil
	}
	level := "info"
	if opts.Verbose {
		level = "debug"
	}
	return logging.New(logging.Options{Level: level, Format: opts.LogFormat})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
