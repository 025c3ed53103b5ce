package document

import "strings"

const (
	MaxFileNameLength = 140
	DefaultFileName   = "file.pdf"
)

// SanitizeFileName replaces every character outside [A-Za-z0-9._-] with an
// underscore and truncates to MaxFileNameLength. Results made only of dots
// and underscores become DefaultFileName.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.TrimSpace(name) {
		if isSafe(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := b.String()
	if len(out) > MaxFileNameLength {
		out = out[:MaxFileNameLength]
	}
	if strings.Trim(out, "._") == "" {
		return DefaultFileName
	}
	return out
}

func isSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
