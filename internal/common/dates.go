package common

import (
	"fmt"
	"strings"
	"time"
)

// ISODate is the canonical date layout used throughout the application.
const ISODate = "2006-01-02"

// localeDateLayouts are common locale-specific date formats tried in order
// after the canonical and OFX forms fail. Slash dates are interpreted as
// US-style (month first); dash and dot dates as day first.
var localeDateLayouts = []string{
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"01/02/06",
}

// fallbackDateLayouts are a last resort for timestamps and verbose forms.
var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC822,
	"Monday, January 2, 2006",
}

// ParseDate parses a date string in any supported format.
// Tries, in order: ISO (YYYY-MM-DD), OFX compact (YYYYMMDD with optional
// trailing time/zone noise), common locale formats, then general
// timestamp layouts. The returned error names the unparsed input.
func ParseDate(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("cannot parse empty date")
	}

	if t, err := time.Parse(ISODate, s); err == nil {
		return t, nil
	}

	// OFX dates look like 20240115 or 20240115120000.000[-5:EST];
	// only the leading 8 digits matter.
	if len(s) >= 8 && isDigits(s[:8]) {
		if t, err := time.Parse("20060102", s[:8]); err == nil {
			return t, nil
		}
	}

	for _, layout := range localeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	for _, layout := range fallbackDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", value)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
