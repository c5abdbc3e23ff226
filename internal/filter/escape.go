package filter

import "strings"

// textEscaper escapes text for the drawtext text option. Backslash comes
// first so the backslashes added by later rules are not escaped again.
var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	`:`, `\:`,
	`'`, `\'`,
	`"`, `\"`,
)

// Escape prepares raw text for embedding in a drawtext directive
func Escape(text string) string {
	return textEscaper.Replace(text)
}

// Unescape reverses Escape: every backslash-prefixed character is emitted
// literally.
func Unescape(escaped string) string {
	var b strings.Builder
	b.Grow(len(escaped))
	pending := false
	for _, r := range escaped {
		if !pending && r == '\\' {
			pending = true
			continue
		}
		pending = false
		b.WriteRune(r)
	}
	if pending {
		b.WriteByte('\\')
	}
	return b.String()
}

// escapeCommas protects commas inside an option value from the filter chain
// separator
func escapeCommas(expr string) string {
	return strings.ReplaceAll(expr, ",", `\,`)
}
