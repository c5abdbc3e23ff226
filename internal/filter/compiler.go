package filter

import (
	"math"
	"strings"

	"github.com/ZacxDev/video-overlay/internal/config"
	"github.com/pkg/errors"
)

// ErrNothingToRender is returned when both text lines are blank
var ErrNothingToRender = errors.New("no text to overlay")

// namedColors maps the color names the UI offers to engine color values
var namedColors = map[string]string{
	"white":  "white",
	"black":  "black",
	"yellow": "yellow",
	"red":    "red",
	"blue":   "blue",
	"green":  "green",
}

// ColorValue resolves a color name. Unknown values pass through unchanged
// since the engine accepts hex and many more names.
func ColorValue(color string) string {
	if strings.TrimSpace(color) == "" {
		return "white"
	}
	if v, ok := namedColors[strings.ToLower(color)]; ok {
		return v
	}
	return color
}

// OutlineFor picks the outline for a line: the configured width when set,
// a fixed width for bold lines otherwise, and no outline at all for normal
// lines without a configured width.
func OutlineFor(cfg config.OverlayConfig, line config.LineStyle) *Outline {
	width := int(math.Round(cfg.OutlineWidth))
	if width <= 0 && line.IsBold() {
		width = config.BoldOutlineWidth
	}
	if width <= 0 {
		return nil
	}
	return &Outline{Width: width, Color: ColorValue(cfg.OutlineColor)}
}

// Directive builds the typed drawtext directive for one line
func Directive(cfg config.OverlayConfig, line config.LineStyle, text string, window float64) DrawText {
	return DrawText{
		Text:      text,
		FontSize:  Scaled{Ref: line.FontSize},
		X:         Scaled{Ref: line.OffsetX},
		Y:         FromBottom{Offset: Scaled{Ref: line.OffsetY}},
		FontColor: ColorValue(cfg.TextColor),
		Outline:   OutlineFor(cfg, line),
		Enable:    Window{Seconds: window},
	}
}

// Directives returns the directives for the non-blank lines, title first
func Directives(cfg config.OverlayConfig, title, artist string, window float64) ([]DrawText, error) {
	if window <= 0 {
		window = config.DefaultOverlayWindowSeconds
	}

	var out []DrawText
	if strings.TrimSpace(title) != "" {
		out = append(out, Directive(cfg, cfg.Title, title, window))
	}
	if strings.TrimSpace(artist) != "" {
		out = append(out, Directive(cfg, cfg.Artist, artist, window))
	}
	if len(out) == 0 {
		return nil, ErrNothingToRender
	}
	return out, nil
}

// Compile turns an overlay configuration and the two text lines into one
// filter expression for the engine's -vf argument
func Compile(cfg config.OverlayConfig, title, artist string, window float64) (string, error) {
	directives, err := Directives(cfg, title, artist, window)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(directives))
	for _, d := range directives {
		parts = append(parts, d.String())
	}
	// Comma-separated drawtext filters are applied in order to the same frame
	return strings.Join(parts, ","), nil
}
