package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Weight is the font weight of one overlay line
type Weight string

const (
	WeightNormal Weight = "normal"
	WeightBold   Weight = "bold"
)

// LineStyle places one text line. Offsets and font size are authored against
// a ReferenceHeight-tall frame and rescaled when the filter is compiled.
type LineStyle struct {
	OffsetX  float64 `toml:"offset_x" validate:"gte=0"`  // from the left edge
	OffsetY  float64 `toml:"offset_y" validate:"gte=0"`  // from the bottom edge
	FontSize float64 `toml:"font_size" validate:"gte=0"` // reference-frame units
	Weight   Weight  `toml:"weight" validate:"omitempty,oneof=normal bold"`
}

// OverlayConfig describes where and how the title and artist lines are drawn
type OverlayConfig struct {
	Title        LineStyle
	Artist       LineStyle
	TextColor    string
	OutlineColor string
	// OutlineWidth is in pixels and is not rescaled with the frame height.
	OutlineWidth         float64 `validate:"gte=0"`
	OverlayWindowSeconds float64 `validate:"gte=0"`
}

const (
	// Reference frame height all preset geometry is authored against
	ReferenceHeight = 1080

	DefaultOverlayWindowSeconds = 4

	// Soft cap on source files, checked before any engine interaction
	MaxSourceFileSize int64 = 2 * 1024 * 1024 * 1024

	// Marker appended to the output base name
	OutputSuffix           = "_with_text"
	DefaultOutputExtension = "mp4"

	// Delay before a succeeded job is reset to idle
	SuccessResetDelay = 3 * time.Second

	// Outline used for bold lines when no outline width is configured
	BoldOutlineWidth = 2
)

// Per-field defaults applied when a configuration leaves a field unset
const (
	DefaultTitleOffsetX   = 150
	DefaultTitleOffsetY   = 250
	DefaultTitleFontSize  = 70
	DefaultArtistOffsetX  = 150
	DefaultArtistOffsetY  = 200
	DefaultArtistFontSize = 45
	DefaultTextColor      = "white"
	DefaultOutlineColor   = "black"
	DefaultOutlineWidth   = 3
)

// Default returns the configuration every preset and custom file falls back to
func Default() OverlayConfig {
	return OverlayConfig{
		Title: LineStyle{
			OffsetX:  DefaultTitleOffsetX,
			OffsetY:  DefaultTitleOffsetY,
			FontSize: DefaultTitleFontSize,
			Weight:   WeightBold,
		},
		Artist: LineStyle{
			OffsetX:  DefaultArtistOffsetX,
			OffsetY:  DefaultArtistOffsetY,
			FontSize: DefaultArtistFontSize,
			Weight:   WeightNormal,
		},
		TextColor:            DefaultTextColor,
		OutlineColor:         DefaultOutlineColor,
		OutlineWidth:         DefaultOutlineWidth,
		OverlayWindowSeconds: DefaultOverlayWindowSeconds,
	}
}

var validate = validator.New()

// Validate checks that every numeric field is non-negative and that weights
// are known values
func Validate(cfg OverlayConfig) error {
	return validationError("invalid overlay config", validate.Struct(cfg))
}

func validationError(prefix string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%s: %s", prefix, strings.Join(fields, ", "))
	}
	return errors.Wrap(err, prefix)
}

// IsBold reports whether the line is drawn bold
func (s LineStyle) IsBold() bool {
	return strings.EqualFold(string(s.Weight), string(WeightBold))
}
