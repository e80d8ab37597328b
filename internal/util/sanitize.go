package util

import (
	"strings"
	"unicode"
)

// CleanText prepares free-form user text such as a team name for storage:
// control and invisible characters are dropped, whitespace runs collapse to
// one space, and the result is cut to maxRunes runes. maxRunes <= 0 means no
// limit.
func CleanText(value string, maxRunes int) string {
	builder := strings.Builder{}
	builder.Grow(len(value))

	space := false
	for _, char := range value {
		if unicode.IsSpace(char) {
			space = true
			continue
		}
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		if space && builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		space = false
		builder.WriteRune(char)
	}

	cleaned := builder.String()

	// Truncate by runes (not bytes) to avoid splitting multi-byte characters.
	if maxRunes > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxRunes {
			cleaned = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}

	return cleaned
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters that should be stripped from display text.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u200E', // Left-to-Right Mark
		'\u200F', // Right-to-Left Mark
		'\u2060', // Word Joiner
		'\uFEFF', // Zero-Width No-Break Space / BOM
		'\uFFF9', // Interlinear Annotation Anchor
		'\uFFFA', // Interlinear Annotation Separator
		'\uFFFB': // Interlinear Annotation Terminator
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
