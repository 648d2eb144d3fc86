package ingest

// convert.go turns raw source strings into canonical values.
//
// Affiliate exports are inconsistent about amounts and timestamps:
//   - Currency symbols and thousands separators in prices
//   - Accounting negatives written as "(12.50)"
//   - Several timestamp layouts, with and without a time of day
//
// Empty input is never an error; unparseable non-empty input is.

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a plain decimal after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// eventTimeLayouts are tried in order. Layouts without a zone are UTC.
var eventTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"20060102",
}

// parseAmount converts a price string to a decimal. Empty input is zero.
func parseAmount(s string) (decimal.Decimal, error) {
	raw := s
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, fmt.Errorf("invalid number %q", raw)
	}
	return decimal.NewFromString(s)
}

// parseEventTime parses a source timestamp. Empty input yields nil.
func parseEventTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	for _, layout := range eventTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// Stores keep microseconds; finer precision would never compare equal.
			t = t.UTC().Truncate(time.Microsecond)
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q", s)
}
