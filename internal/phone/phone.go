// Package phone canonicalizes Romanian mobile numbers into the international
// form used as the customer identity key.
package phone

import (
	"errors"
	"strings"
)

// ErrInvalidFormat is returned for anything that is not a Romanian mobile
// number in a recognised form.
var ErrInvalidFormat = errors.New("invalid phone format")

// Normalize accepts local ("07XXXXXXXX") and international ("+407XXXXXXXX",
// "00407XXXXXXXX") Romanian mobile numbers, tolerating spaces, dots, hyphens
// and parentheses, and rewrites them all to the canonical "+407XXXXXXXX".
func Normalize(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '.', '(', ')':
			return -1
		}
		return r
	}, raw)

	switch {
	case strings.HasPrefix(cleaned, "+40"):
		cleaned = cleaned[3:]
	case strings.HasPrefix(cleaned, "0040"):
		cleaned = cleaned[4:]
	case strings.HasPrefix(cleaned, "0"):
		cleaned = cleaned[1:]
	default:
		return "", ErrInvalidFormat
	}

	// Nine subscriber digits, mobile prefix 7.
	if len(cleaned) != 9 || cleaned[0] != '7' {
		return "", ErrInvalidFormat
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", ErrInvalidFormat
		}
	}

	return "+40" + cleaned, nil
}

// Mask hides the middle of a normalized number for display, keeping the
// prefix and the last two digits: "+40722123456" -> "+40•••••••56".
func Mask(normalized string) string {
	if len(normalized) < 6 {
		return normalized
	}
	return normalized[:3] + strings.Repeat("•", len(normalized)-5) + normalized[len(normalized)-2:]
}
