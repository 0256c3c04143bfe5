package textutil

import (
	"strings"
	"unicode"
)

// CleanText collapses all runs of whitespace (including non-breaking
// spaces and newlines) into single spaces and trims the result.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == ' ' {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// NaturalLess compares two strings treating digit runs as numbers, so
// "ch_2" orders before "ch_10". Ties on numeric value fall back to the
// raw substring comparison.
func NaturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		adigits, atail := leadingDigits(a)
		bdigits, btail := leadingDigits(b)
		if adigits != "" && bdigits != "" {
			an := strings.TrimLeft(adigits, "0")
			bn := strings.TrimLeft(bdigits, "0")
			if len(an) != len(bn) {
				return len(an) < len(bn)
			}
			if an != bn {
				return an < bn
			}
			a, b = atail, btail
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func leadingDigits(s string) (digits, tail string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
