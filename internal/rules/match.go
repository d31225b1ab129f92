package rules

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/centsible/centsible/internal/common"
)

// numericEpsilon tolerates floating rounding when comparing amounts.
const numericEpsilon = 0.01

// matchString evaluates a string condition case-insensitively.
// An empty ends_with pattern always matches; an invalid regex never does.
func matchString(value, matchType string, pattern any) bool {
	needle := strings.ToLower(toString(pattern))
	haystack := strings.ToLower(value)

	switch matchType {
	case MatchContains:
		return strings.Contains(haystack, needle)
	case MatchStartsWith:
		return strings.HasPrefix(haystack, needle)
	case MatchEndsWith:
		return strings.HasSuffix(haystack, needle)
	case MatchEquals:
		return haystack == needle
	case MatchRegex:
		matched, err := common.MatchRegexFold(toString(pattern), value)
		if err != nil {
			slog.Warn("invalid regex pattern in rule condition",
				"matchType", matchType,
				"error", err)
			return false
		}
		return matched
	default:
		slog.Warn("invalid match type for string field", "matchType", matchType)
		return false
	}
}

// matchNumeric evaluates an amount condition. Equality tolerates an
// absolute difference below 0.01; between is inclusive on both ends.
func matchNumeric(value float64, matchType string, pattern any) bool {
	switch matchType {
	case MatchEquals:
		p, ok := toFloat(pattern)
		if !ok {
			slog.Warn("non-numeric pattern for amount condition", "matchType", matchType)
			return false
		}
		return math.Abs(value-p) < numericEpsilon
	case MatchGreaterThan:
		p, ok := toFloat(pattern)
		if !ok {
			slog.Warn("non-numeric pattern for amount condition", "matchType", matchType)
			return false
		}
		return value > p
	case MatchLessThan:
		p, ok := toFloat(pattern)
		if !ok {
			slog.Warn("non-numeric pattern for amount condition", "matchType", matchType)
			return false
		}
		return value < p
	case MatchBetween:
		minVal, maxVal, ok := toRange(pattern)
		if !ok {
			slog.Warn("malformed between pattern for amount condition", "matchType", matchType)
			return false
		}
		return value >= minVal && value <= maxVal
	default:
		slog.Warn("invalid match type for amount field", "matchType", matchType)
		return false
	}
}

// matchDate evaluates a date condition. Equality compares the calendar
// date only; before/after are strict; between is inclusive.
func matchDate(value, matchType string, pattern any) bool {
	parsed, err := common.ParseDate(value)
	if err != nil {
		slog.Warn("unparseable date value in transaction fields",
			"matchType", matchType,
			"error", err)
		return false
	}
	day := truncateToDay(parsed)

	switch matchType {
	case MatchEquals:
		p, ok := parseDatePattern(pattern, matchType)
		if !ok {
			return false
		}
		return day.Equal(p)
	case MatchBefore:
		p, ok := parseDatePattern(pattern, matchType)
		if !ok {
			return false
		}
		return day.Before(p)
	case MatchAfter:
		p, ok := parseDatePattern(pattern, matchType)
		if !ok {
			return false
		}
		return day.After(p)
	case MatchBetween:
		bounds, ok := pattern.(map[string]any)
		if !ok {
			slog.Warn("malformed between pattern for date condition", "matchType", matchType)
			return false
		}
		minDate, minOK := parseDatePattern(bounds["min"], matchType)
		maxDate, maxOK := parseDatePattern(bounds["max"], matchType)
		if !minOK || !maxOK {
			slog.Warn("malformed between pattern for date condition", "matchType", matchType)
			return false
		}
		return !day.Before(minDate) && !day.After(maxDate)
	default:
		slog.Warn("invalid match type for date field", "matchType", matchType)
		return false
	}
}

func parseDatePattern(pattern any, matchType string) (time.Time, bool) {
	parsed, err := common.ParseDate(toString(pattern))
	if err != nil {
		slog.Warn("unparseable date pattern in rule condition",
			"matchType", matchType,
			"error", err)
		return time.Time{}, false
	}
	return truncateToDay(parsed), true
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// toString coerces a JSON-decoded pattern or field value to a string.
func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// toFloat coerces a JSON-decoded pattern or field value to a float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// toRange extracts {min, max} bounds from a between pattern.
func toRange(v any) (minVal, maxVal float64, ok bool) {
	bounds, isMap := v.(map[string]any)
	if !isMap {
		return 0, 0, false
	}
	minVal, minOK := toFloat(bounds["min"])
	maxVal, maxOK := toFloat(bounds["max"])
	if !minOK || !maxOK {
		return 0, 0, false
	}
	return minVal, maxVal, true
}
