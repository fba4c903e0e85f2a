package postgres

import (
	"fmt"
	"strings"
)

// numericToCents parses a NUMERIC(15,2) literal into integer cents without
// going through floating point, so large BRL grosses stay exact. More than
// two fractional digits means the column no longer matches the schema and is
// reported as an error rather than silently rounded.
func numericToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric value")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("malformed numeric value %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("numeric value %q has more than 2 fractional digits", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	var cents int64
	for _, part := range []string{whole, frac} {
		for _, c := range part {
			if c < '0' || c > '9' {
				return 0, fmt.Errorf("malformed numeric value %q", s)
			}
			cents = cents*10 + int64(c-'0')
		}
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

// centsToNumeric formats integer cents as a NUMERIC(15,2) literal.
func centsToNumeric(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
