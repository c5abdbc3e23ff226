package filter

import (
	"strings"
	"testing"

	"github.com/ZacxDev/video-overlay/internal/config"
	"github.com/pkg/errors"
)

func youtubeConfig() config.OverlayConfig {
	return config.OverlayConfig{
		Title:                config.LineStyle{OffsetX: 150, OffsetY: 250, FontSize: 70, Weight: config.WeightBold},
		Artist:               config.LineStyle{OffsetX: 150, OffsetY: 200, FontSize: 45, Weight: config.WeightNormal},
		TextColor:            "white",
		OutlineColor:         "black",
		OutlineWidth:         3,
		OverlayWindowSeconds: 4,
	}
}

func TestCompileTitleOnlyExactOutput(t *testing.T) {
	got, err := Compile(youtubeConfig(), "Song", "", 4)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	want := `drawtext=text='Song':fontsize=(70*h/1080):x=(150*h/1080):y=h-th-(250*h/1080)` +
		`:fontcolor=white@1.0:enable='between(t\,0\,4)+between(t\,duration-4\,duration)'` +
		`:borderw=3:bordercolor=black@0.8`
	if got != want {
		t.Fatalf("unexpected filter\n got: %s\nwant: %s", got, want)
	}
}

func TestCompileBothLinesTitleFirst(t *testing.T) {
	got, err := Compile(youtubeConfig(), "Song", "Artist", 4)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	parts := splitChain(got)
	if len(parts) != 2 {
		t.Fatalf("expected 2 directives, got %d: %q", len(parts), parts)
	}
	if strings.Count(got, "drawtext=") != 2 {
		t.Fatalf("expected exactly two drawtext directives: %s", got)
	}
	if textOf(t, parts[0]) != "Song" || textOf(t, parts[1]) != "Artist" {
		t.Fatalf("directive order wrong: %q", parts)
	}
	if !strings.Contains(parts[1], "fontsize=(45*h/1080)") {
		t.Fatalf("artist directive should use artist geometry: %s", parts[1])
	}
}

func TestCompileArtistOnly(t *testing.T) {
	got, err := Compile(youtubeConfig(), "   ", "Artist", 4)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if parts := splitChain(got); len(parts) != 1 || textOf(t, parts[0]) != "Artist" {
		t.Fatalf("expected single artist directive, got %q", got)
	}
}

func TestCompileNothingToRender(t *testing.T) {
	_, err := Compile(youtubeConfig(), " \t", "\n", 4)
	if !errors.Is(err, ErrNothingToRender) {
		t.Fatalf("expected ErrNothingToRender, got %v", err)
	}
}

func TestOutlineRules(t *testing.T) {
	cfg := youtubeConfig()
	cfg.OutlineWidth = 0

	cfg.Title.Weight = config.WeightNormal
	got, err := Compile(cfg, "Song", "", 4)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if strings.Contains(got, "borderw") || strings.Contains(got, "bordercolor") {
		t.Fatalf("normal weight without outline width must have no outline clause: %s", got)
	}

	cfg.Title.Weight = config.WeightBold
	got, err = Compile(cfg, "Song", "", 4)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if !strings.Contains(got, ":borderw=2:bordercolor=black@0.8") {
		t.Fatalf("bold weight should get a width 2 outline: %s", got)
	}

	cfg.OutlineWidth = 5
	cfg.OutlineColor = "Yellow"
	got, _ = Compile(cfg, "Song", "", 4)
	if !strings.Contains(got, ":borderw=5:bordercolor=yellow@0.8") {
		t.Fatalf("configured outline should win: %s", got)
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		`plain`,
		`Don't Stop: Believin'`,
		`C:\Users\"me"`,
		`trailing\`,
		`\\:''""`,
		`ünïcödé: ok`,
	}
	for _, in := range inputs {
		esc := Escape(in)
		if got := Unescape(esc); got != in {
			t.Fatalf("round trip %q -> %q -> %q", in, esc, got)
		}

		compiled, err := Compile(youtubeConfig(), in, "", 4)
		if err != nil {
			t.Fatalf("Compile(%q): %v", in, err)
		}
		if got := textOf(t, compiled); got != in {
			t.Fatalf("compiled text %q does not reproduce %q", got, in)
		}
	}
}

func TestEscapeOrder(t *testing.T) {
	if got := Escape(`a\:b`); got != `a\\\:b` {
		t.Fatalf("Escape = %q", got)
	}
	if got := Escape(`'"`); got != `\'\"` {
		t.Fatalf("Escape = %q", got)
	}
}

func TestVerticalPositionScalesWithHeight(t *testing.T) {
	line := config.LineStyle{OffsetY: 250, FontSize: 70}
	d := Directive(youtubeConfig(), line, "Song", 4)

	at1080 := d.Y.Eval(1080, d.FontSize.Eval(1080))
	at2160 := d.Y.Eval(2160, d.FontSize.Eval(2160))
	if at2160 != 2*at1080 {
		t.Fatalf("y at 2160 = %v, want twice %v", at2160, at1080)
	}
	if got := d.Y.Offset.Eval(2160); got != 500 {
		t.Fatalf("offset at 2160 = %v, want 500", got)
	}
	if d.Y.String() != "h-th-(250*h/1080)" {
		t.Fatalf("y expression = %q", d.Y.String())
	}
}

func TestOutlineWidthIsNotRescaled(t *testing.T) {
	cfg := youtubeConfig()
	cfg.OutlineWidth = 3
	d := Directive(cfg, cfg.Title, "Song", 4)
	if d.Outline == nil || d.Outline.Width != 3 {
		t.Fatalf("outline = %+v, want width 3", d.Outline)
	}
	if strings.Contains(d.String(), "borderw=(") {
		t.Fatalf("outline width must be a fixed number: %s", d.String())
	}
}

func TestWindowDefaultsAndFractions(t *testing.T) {
	got, _ := Compile(youtubeConfig(), "Song", "", 0)
	if !strings.Contains(got, `between(t\,0\,4)`) {
		t.Fatalf("non-positive window should default to 4: %s", got)
	}
	got, _ = Compile(youtubeConfig(), "Song", "", 2.5)
	if !strings.Contains(got, `between(t\,duration-2.5\,duration)`) {
		t.Fatalf("fractional window not preserved: %s", got)
	}
}

func TestColorValue(t *testing.T) {
	cases := map[string]string{
		"":        "white",
		"WHITE":   "white",
		"Red":     "red",
		"#ff8800": "#ff8800",
		"navy":    "navy",
	}
	for in, want := range cases {
		if got := ColorValue(in); got != want {
			t.Fatalf("ColorValue(%q) = %q, want %q", in, got, want)
		}
	}
}

// splitChain splits a filter chain on separators that are neither escaped
// nor inside single quotes.
func splitChain(chain string) []string {
	var parts []string
	var cur strings.Builder
	quoted := false
	for i := 0; i < len(chain); i++ {
		c := chain[i]
		switch {
		case c == '\\' && i+1 < len(chain):
			cur.WriteByte(c)
			cur.WriteByte(chain[i+1])
			i++
		case c == '\'':
			quoted = !quoted
			cur.WriteByte(c)
		case c == ',' && !quoted:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}

// textOf extracts and unescapes the text option of a single directive
func textOf(t *testing.T, directive string) string {
	t.Helper()
	const prefix = "drawtext=text='"
	if !strings.HasPrefix(directive, prefix) {
		t.Fatalf("directive has no text option: %s", directive)
	}
	rest := directive[len(prefix):]
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case '\\':
			i++
		case '\'':
			return Unescape(rest[:i])
		}
	}
	t.Fatalf("unterminated text option: %s", directive)
	return ""
}
