package drive

import "strings"

// DefaultSegmentLength bounds folder names derived from user text.
const DefaultSegmentLength = 50

// Sanitize maps arbitrary user text onto a safe path segment using the
// default length bound. Every path segment derived from user input must go
// through here before it reaches the remote store.
func Sanitize(text string) string {
	return SanitizeN(text, DefaultSegmentLength)
}

// SanitizeN replaces every character outside [A-Za-z0-9] with '_', collapses
// runs, trims leading/trailing underscores and truncates to maxLength. The
// result is never empty ("unnamed" fallback) and the function is idempotent:
// SanitizeN(SanitizeN(x, n), n) == SanitizeN(x, n).
func SanitizeN(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultSegmentLength
	}

	var b strings.Builder
	b.Grow(len(text))
	lastUnderscore := false
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}

	out := strings.Trim(b.String(), "_")
	if len(out) > maxLength {
		// Truncation can expose a trailing underscore again.
		out = strings.TrimRight(out[:maxLength], "_")
	}
	if out == "" {
		return "unnamed"
	}
	return out
}
