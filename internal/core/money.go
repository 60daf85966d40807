// Package core holds the ledger domain: clients, month cells and the pure
// functions that merge, toggle, project and summarize them.
//
// This file contains amount parsing for user supplied values.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a positive decimal amount.
//
// Both dot (450.50) and comma (450,50) separators are accepted; when both
// appear the last one is the decimal separator, so "1.200,00" and "1,200.00"
// both parse to 1200. A single kind of separator that splits the digits into
// thousands groups ("1.200", "1,200", "1.200.000") is a thousands separator.
// The result is rounded half-up to cents.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, ErrInvalidAmount
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = normalizeSeparator(s, ",")
	case lastDot >= 0:
		s = normalizeSeparator(s, ".")
	}
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// normalizeSeparator rewrites s, which contains only sep as separator, into
// the dot-decimal form. It returns "" when s cannot be read either way.
func normalizeSeparator(s, sep string) string {
	if thousandsGroups(strings.Split(s, sep)) {
		return strings.ReplaceAll(s, sep, "")
	}
	if strings.Count(s, sep) > 1 {
		return ""
	}
	return strings.Replace(s, sep, ".", 1)
}

// thousandsGroups reports whether parts read as 1.234.567: a leading group
// of one to three digits not starting with 0, then groups of exactly three.
func thousandsGroups(parts []string) bool {
	if len(parts) < 2 || len(parts[0]) == 0 || len(parts[0]) > 3 || parts[0][0] == '0' {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
