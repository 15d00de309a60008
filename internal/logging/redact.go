package logging

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// DefaultPreviewRunes bounds message previews written to logs.
const DefaultPreviewRunes = 80

// Redact masks emails, card numbers and phone numbers in participant text.
// Transcripts are stored verbatim; only log output goes through this.
func Redact(input string) string {
	out := emailPattern.ReplaceAllString(input, "[email]")
	// Cards before phones, or long digit runs read as phone numbers.
	out = cardPattern.ReplaceAllString(out, "[card]")
	return phonePattern.ReplaceAllString(out, "[phone]")
}

// Preview returns a redacted, single-line, rune-bounded excerpt for logging.
func Preview(input string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultPreviewRunes
	}
	out := strings.Join(strings.Fields(Redact(input)), " ")
	if utf8.RuneCountInString(out) <= maxRunes {
		return out
	}
	runes := []rune(out)
	return string(runes[:maxRunes]) + "…"
}
