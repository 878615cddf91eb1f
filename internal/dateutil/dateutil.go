// Package dateutil expands date placeholders in object key patterns.
//
// A pattern is literal text with {FORMAT} placeholders, for example
// "notes/{YYYY}/{MM}" or "archive/{iso}". FORMAT uses the tokens YYYY, YY,
// MMMM, MMM, MM, M, DD and D, or one of the named presets.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidPattern indicates a malformed key pattern or date format.
var ErrInvalidPattern = errors.New("invalid date pattern")

// MaxFormatLength limits a single placeholder.
const MaxFormatLength = 50

// dateTokens maps tokens to Go time layout components.
// Ordered by length descending for greedy matching.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// Presets provides named shortcuts usable as a whole placeholder.
var Presets = map[string]string{
	"iso":   "YYYY-MM-DD",
	"month": "YYYY/MM",
	"day":   "YYYY/MM/DD",
}

// Layout converts a placeholder format to a Go time layout.
// Characters that are not tokens are kept literally.
func Layout(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: empty placeholder", ErrInvalidPattern)
	}
	if len(format) > MaxFormatLength {
		return "", fmt.Errorf("%w: placeholder exceeds %d characters", ErrInvalidPattern, MaxFormatLength)
	}
	if preset, ok := Presets[strings.ToLower(format)]; ok {
		format = preset
	}

	var b strings.Builder
	b.Grow(len(format) + 8)

	for i := 0; i < len(format); {
		matched := false
		for _, t := range dateTokens {
			if strings.HasPrefix(format[i:], t.token) {
				b.WriteString(t.goFmt)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String(), nil
}

// Expand replaces every {FORMAT} placeholder in pattern with t formatted by
// FORMAT. A pattern without placeholders is returned unchanged.
func Expand(pattern string, t time.Time) (string, error) {
	if !strings.ContainsAny(pattern, "{}") {
		return pattern, nil
	}

	var b strings.Builder
	b.Grow(len(pattern) + 8)

	for i := 0; i < len(pattern); {
		switch pattern[i] {
		case '{':
			end := strings.IndexByte(pattern[i+1:], '}')
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed brace at position %d", ErrInvalidPattern, i)
			}
			layout, err := Layout(pattern[i+1 : i+1+end])
			if err != nil {
				return "", err
			}
			b.WriteString(t.Format(layout))
			i += end + 2
		case '}':
			return "", fmt.Errorf("%w: unmatched closing brace at position %d", ErrInvalidPattern, i)
		default:
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String(), nil
}

// Validate checks a pattern without expanding it.
func Validate(pattern string) error {
	_, err := Expand(pattern, time.Time{})
	return err
}
