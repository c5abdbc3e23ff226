package processor

import (
	"regexp"
	"strings"

	"github.com/ZacxDev/video-overlay/internal/config"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	illegalChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	edgeDots      = regexp.MustCompile(`^[._]+|[._]+$`)
)

// SanitizeFilename makes a name safe for the engine's working storage.
// Whitespace runs become one underscore, characters illegal in the engine
// filesystem are removed, leading and trailing dots and underscores are
// trimmed, and the extension is kept.
func SanitizeFilename(filename string) string {
	name, ext := splitExt(filename)

	sanitized := whitespaceRun.ReplaceAllString(name, "_")
	sanitized = illegalChars.ReplaceAllString(sanitized, "")
	sanitized = edgeDots.ReplaceAllString(sanitized, "")
	if sanitized == "" {
		sanitized = "file"
	}
	return sanitized + ext
}

// splitExt splits at the last dot. A leading dot is part of the name.
func splitExt(filename string) (name, ext string) {
	dot := strings.LastIndex(filename, ".")
	if dot <= 0 {
		return filename, ""
	}
	return filename[:dot], filename[dot:]
}

// Extension returns the lower-cased extension without the dot
func Extension(filename string) string {
	_, ext := splitExt(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// OutputName derives the produced file name from the staged input name
func OutputName(staged string) string {
	base, _ := splitExt(staged)
	ext := Extension(staged)
	if ext == "" {
		ext = config.DefaultOutputExtension
	}
	return base + config.OutputSuffix + "." + ext
}

// MediaTypeFor maps an output extension to the media type of the saved file
func MediaTypeFor(ext string) string {
	if strings.EqualFold(strings.TrimPrefix(ext, "."), "mov") {
		return "video/quicktime"
	}
	return "video/mp4"
}
