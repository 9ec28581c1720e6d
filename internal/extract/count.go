package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	// ErrInvalidCount is returned for counts with no digits or values that do not fit an int64.
	ErrInvalidCount = errors.New("invalid count")
	// ErrAbbreviatedCount is returned for abbreviated counts such as "1.2K" which cannot be parsed exactly.
	ErrAbbreviatedCount = errors.New("abbreviated count not supported")
)

// ParseCount normalizes a human formatted count by stripping every non-digit character.
// Thousands separators and punctuation are tolerated, K/M/B suffixes and negative values are rejected.
func ParseCount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidCount)
	}
	switch unicode.ToLower(rune(s[len(s)-1])) {
	case 'k', 'm', 'b':
		return 0, fmt.Errorf("%w: %q", ErrAbbreviatedCount, raw)
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: negative %q", ErrInvalidCount, raw)
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("%w: no digits in %q", ErrInvalidCount, raw)
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCount, err)
	}
	return n, nil
}
