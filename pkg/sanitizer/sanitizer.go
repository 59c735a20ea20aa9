// Package sanitizer normalizes free-text user input before validation.
package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims leading/trailing whitespace and collapses inner
// whitespace runs to single spaces.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// stripControl removes control characters. Whitespace runes like tab and
// newline are kept so a later normalization pass can collapse them instead
// of gluing the surrounding words together.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeTitle cleans a booking title. Titles are display text, so casing
// and punctuation are preserved; control characters are not.
func SanitizeTitle(input string) string {
	p := Pipeline{
		stripControl,
		TrimAndNormalize,
	}
	return p.Apply(input)
}

// SanitizeKey normalizes a settings key.
func SanitizeKey(input string) string {
	p := Pipeline{
		stripControl,
		strings.TrimSpace,
	}
	return p.Apply(input)
}
