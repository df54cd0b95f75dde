package state

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// ContentHash fingerprints text after normalizing away differences that
// do not change meaning: a leading BOM, CRLF line endings, trailing
// whitespace on each line and trailing blank lines.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Normalize applies the ContentHash normalization.
func Normalize(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, isTrailingSpace)
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// isTrailingSpace matches Unicode whitespace plus the ASCII information
// separators U+001C..U+001F, which editors also treat as blank.
func isTrailingSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// HashPtr returns a pointer to the hash of text, for Entry fields.
func HashPtr(text string) *string {
	h := ContentHash(text)
	return &h
}
