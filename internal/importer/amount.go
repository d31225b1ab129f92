package importer

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount parses a monetary amount, disambiguating European
// (1.234,56) and US (1.234.56 vs 1,234.56) separator conventions.
//
// With a single separator type present, one occurrence within the last
// three characters means it is the decimal separator; anything else is
// a thousands separator and is stripped. With both types present, the
// separator occurring later in the string is the decimal one. The
// last-3-characters boundary check decides whether "1.234" is one point
// two three four or one thousand two hundred thirty-four — get it wrong
// and the magnitude is off by three orders.
func ParseAmount(value string) (float64, error) {
	s := stripCurrency(value)
	if s == "" {
		return 0, fmt.Errorf("cannot parse empty amount")
	}

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		negative = true
		s = s[1 : len(s)-1]
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Both present: the later one is the decimal separator.
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastComma >= 0:
		s = resolveSingleSeparator(s, ",")
	case lastDot >= 0:
		s = resolveSingleSeparator(s, ".")
	}

	parsed, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount: %q", value)
	}
	if negative {
		parsed = -parsed
	}
	return parsed, nil
}

// resolveSingleSeparator decides whether the only separator type in an
// amount is decimal or thousands: a single occurrence within the last
// three characters is decimal, anything else is thousands.
func resolveSingleSeparator(s, separator string) string {
	if strings.Count(s, separator) == 1 && strings.Index(s, separator) >= len(s)-3 {
		return strings.Replace(s, separator, ".", 1)
	}
	return strings.ReplaceAll(s, separator, "")
}

// stripCurrency removes currency symbols and whitespace.
func stripCurrency(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch r {
		case '$', '€', '£', '¥', ' ', '\t', ' ':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
