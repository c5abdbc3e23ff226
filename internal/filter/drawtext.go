package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZacxDev/video-overlay/internal/config"
)

// Scaled is a reference-frame length emitted as a formula of the frame height
// h, so it holds for any input resolution
type Scaled struct {
	Ref float64
}

func (s Scaled) String() string {
	return fmt.Sprintf("(%s*h/%d)", formatNumber(s.Ref), config.ReferenceHeight)
}

// Eval substitutes a concrete frame height
func (s Scaled) Eval(h float64) float64 {
	return s.Ref * h / config.ReferenceHeight
}

// FromBottom is a vertical position measured from the bottom edge to the
// bottom of the rendered text (th is the text height)
type FromBottom struct {
	Offset Scaled
}

func (y FromBottom) String() string {
	return "h-th-" + y.Offset.String()
}

// Eval substitutes a concrete frame height and text height
func (y FromBottom) Eval(h, th float64) float64 {
	return h - th - y.Offset.Eval(h)
}

// Window enables a directive during the first and last Seconds of the clip.
// duration is resolved by the engine at render time.
type Window struct {
	Seconds float64
}

func (w Window) String() string {
	n := formatNumber(w.Seconds)
	return fmt.Sprintf("between(t,0,%s)+between(t,duration-%s,duration)", n, n)
}

// Outline is the text border. Width is in pixels and is not rescaled.
type Outline struct {
	Width int
	Color string
}

// DrawText is one drawtext directive
type DrawText struct {
	Text      string // raw, unescaped
	FontSize  Scaled
	X         Scaled
	Y         FromBottom
	FontColor string
	Outline   *Outline
	Enable    Window
}

const (
	fillOpacity    = "1.0"
	outlineOpacity = "0.8"
)

// String serializes the directive to the engine's filter syntax. All
// escaping happens here.
func (d DrawText) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "drawtext=text='%s'", Escape(d.Text))
	fmt.Fprintf(&b, ":fontsize=%s", d.FontSize)
	fmt.Fprintf(&b, ":x=%s", d.X)
	fmt.Fprintf(&b, ":y=%s", d.Y)
	fmt.Fprintf(&b, ":fontcolor=%s@%s", d.FontColor, fillOpacity)
	fmt.Fprintf(&b, ":enable='%s'", escapeCommas(d.Enable.String()))
	if d.Outline != nil {
		fmt.Fprintf(&b, ":borderw=%d:bordercolor=%s@%s", d.Outline.Width, d.Outline.Color, outlineOpacity)
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
