package util

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SanitizeText drops runes that extracted report text should never carry:
// NUL and other C0 controls (tab and line breaks excepted), DEL, and the
// U+FFFD replacement rune PDF decoders emit for unmapped glyphs.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(strings.Map(func(ch rune) rune {
		switch {
		case ch == '\n', ch == '\r', ch == '\t':
			return ch
		case ch < 0x20, ch == 0x7f, ch == utf8.RuneError:
			return -1
		}
		return ch
	}, s))
}

var blankRunRe = regexp.MustCompile(`\n{2,}`)

// NormalizeText turns carriage returns into newlines and collapses runs of
// empty lines, keeping single line breaks intact for line-oriented parsing.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = blankRunRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
