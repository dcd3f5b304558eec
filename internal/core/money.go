// Package core holds the income-matrix domain: money parsing, category and
// matrix types, totals calculation and clipboard ingestion.
//
// This file contains functions for parsing and formatting Chilean-peso style
// amounts. Amounts are whole pesos (no cents), stored as non-negative int64.
package core

import (
	"math"
	"strconv"
	"strings"
)

// FormatCLP renders an amount with dot thousands separators and a leading $.
//
// Zero renders as the empty string: a blank matrix cell, not an error.
//
// Examples:
//
//	FormatCLP(1234567) -> "$1.234.567"
//	FormatCLP(0)       -> ""
func FormatCLP(value int64) string {
	if value == 0 {
		return ""
	}
	return "$" + groupThousands(value)
}

// ParseCLP converts a free-text monetary string to a non-negative amount.
//
// It strips currency symbols and whitespace, treats "." as a thousands
// separator and "," as a decimal separator, rounds half away from zero and
// floors at 0. The parser is total: anything unparseable yields 0, it never
// returns an error. Input arrives mid-edit from matrix cells and must not
// fail validation.
//
// Examples:
//
//	ParseCLP("$1.234.567") -> 1234567
//	ParseCLP("1234,6")     -> 1235
//	ParseCLP("-50")        -> 0
//	ParseCLP("abc")        -> 0
func ParseCLP(s string) int64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	// Dots are thousands separators, commas are decimal commas.
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return ClampAmount(f)
}

// ParseBulkValues converts a batch of pasted values to amounts, element-wise.
//
// Each value is first tried as a plain number (spreadsheet exports ship raw
// digits with no separators); anything that fails the direct parse falls back
// to ParseCLP. Order and length are preserved.
func ParseBulkValues(values []string) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			out[i] = ClampAmount(f)
			continue
		}
		out[i] = ParseCLP(v)
	}
	return out
}

// SanitizeMoneyInput drops every rune that cannot appear in a monetary string.
func SanitizeMoneyInput(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == '.' || r == ',' || r == '$' || r == ' ':
			return r
		}
		return -1
	}, input)
}

// FormatLargeNumber renders totals compactly with K/M suffixes for dashboards.
func FormatLargeNumber(value int64) string {
	switch {
	case value == 0:
		return "$0"
	case value >= 1_000_000:
		return "$" + strconv.FormatFloat(float64(value)/1_000_000, 'f', 1, 64) + "M"
	case value >= 1_000:
		return "$" + strconv.FormatFloat(float64(value)/1_000, 'f', 0, 64) + "K"
	default:
		return FormatCLP(value)
	}
}

// ClampAmount applies the storage rule for cell writes: round half away from
// zero, then floor at 0.
func ClampAmount(f float64) int64 {
	r := math.Round(f)
	if r <= 0 {
		return 0
	}
	if r >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(r)
}

func groupThousands(v int64) string {
	digits := strconv.FormatInt(v, 10)
	n := len(digits)
	if n <= 3 {
		return digits
	}
	var b strings.Builder
	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
