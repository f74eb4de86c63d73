package datanorm

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber reads a numeric cell as exported by ad platforms: currency
// symbols, thousands separators, percent signs and surrounding whitespace
// are ignored. ok is false for blank or unparseable cells.
func ParseNumber(raw string) (v float64, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', '¥', ',', '%', ' ', '\u00a0':
			return -1
		}
		return r
	}, s)
	s = strings.TrimSuffix(strings.TrimSuffix(strings.ToUpper(s), "USD"), "EUR")
	if s == "" || strings.EqualFold(s, "nan") || s == "-" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}
