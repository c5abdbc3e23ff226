package config

import (
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// File is the optional TOML configuration. Every overlay field is optional;
// fields left out keep the value of the configuration they are applied to.
//
// Base names the preset the custom preset starts from.
type File struct {
	Preset  string      `toml:"preset"`
	Base    string      `toml:"base"`
	Overlay OverlayFile `toml:"overlay"`
	Engine  EngineFile  `toml:"engine"`
	Output  OutputFile  `toml:"output"`
}

// OverlayFile mirrors OverlayConfig with optional fields. A value that is
// present is taken as given, so a zero font size or window is rejected
// instead of being replaced by a default.
type OverlayFile struct {
	Title                *LineFile `toml:"title"`
	Artist               *LineFile `toml:"artist"`
	TextColor            *string   `toml:"text_color"`
	OutlineColor         *string   `toml:"outline_color"`
	OutlineWidth         *float64  `toml:"outline_width" validate:"omitnil,gte=0"`
	OverlayWindowSeconds *float64  `toml:"overlay_window_seconds" validate:"omitnil,gt=0"`
}

// LineFile mirrors LineStyle with optional fields
type LineFile struct {
	OffsetX  *float64 `toml:"offset_x" validate:"omitnil,gte=0"`
	OffsetY  *float64 `toml:"offset_y" validate:"omitnil,gte=0"`
	FontSize *float64 `toml:"font_size" validate:"omitnil,gt=0"`
	Weight   *string  `toml:"weight"`
}

// ValidateOverlay checks the values that are present
func ValidateOverlay(o OverlayFile) error {
	return validationError("invalid overlay settings", validate.Struct(o))
}

// EngineFile selects the ffmpeg binary and its working storage
type EngineFile struct {
	FFmpeg       string   `toml:"ffmpeg"`
	Fallbacks    []string `toml:"fallbacks"`
	WorkDir      string   `toml:"work_dir"`
	SingleThread bool     `toml:"single_thread"`
}

// OutputFile configures where finished videos are saved
type OutputFile struct {
	Dir string `toml:"dir"`
}

// LoadFile decodes the TOML file at path. An empty path yields an empty File.
func LoadFile(path string) (*File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return &File{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	if err := ValidateOverlay(f.Overlay); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return &f, nil
}

// Resolve applies the file's overlay fields on top of base
func (f *File) Resolve(base OverlayConfig) OverlayConfig {
	if f == nil {
		return base
	}
	o := f.Overlay
	cfg := base
	cfg.Title = o.Title.apply(base.Title)
	cfg.Artist = o.Artist.apply(base.Artist)
	if o.TextColor != nil {
		cfg.TextColor = *o.TextColor
	}
	if o.OutlineColor != nil {
		cfg.OutlineColor = *o.OutlineColor
	}
	if o.OutlineWidth != nil {
		cfg.OutlineWidth = *o.OutlineWidth
	}
	if o.OverlayWindowSeconds != nil {
		cfg.OverlayWindowSeconds = *o.OverlayWindowSeconds
	}
	return cfg
}

func (l *LineFile) apply(base LineStyle) LineStyle {
	if l == nil {
		return base
	}
	out := base
	if l.OffsetX != nil {
		out.OffsetX = *l.OffsetX
	}
	if l.OffsetY != nil {
		out.OffsetY = *l.OffsetY
	}
	if l.FontSize != nil {
		out.FontSize = *l.FontSize
	}
	if l.Weight != nil {
		out.Weight = Weight(strings.ToLower(strings.TrimSpace(*l.Weight)))
	}
	return out
}

// WithDefaults fills zero-valued fields with the package defaults. Presets
// and user edits never carry a zero font size or window; this guards
// hand-built configs where a zero field means it was left out.
func WithDefaults(cfg OverlayConfig) OverlayConfig {
	def := Default()
	cfg.Title = lineDefaults(cfg.Title, def.Title)
	cfg.Artist = lineDefaults(cfg.Artist, def.Artist)
	if strings.TrimSpace(cfg.TextColor) == "" {
		cfg.TextColor = def.TextColor
	}
	if strings.TrimSpace(cfg.OutlineColor) == "" {
		cfg.OutlineColor = def.OutlineColor
	}
	if cfg.OverlayWindowSeconds <= 0 {
		cfg.OverlayWindowSeconds = def.OverlayWindowSeconds
	}
	return cfg
}

func lineDefaults(s, def LineStyle) LineStyle {
	if s.FontSize <= 0 {
		s.FontSize = def.FontSize
	}
	if s.Weight == "" {
		s.Weight = def.Weight
	}
	return s
}
