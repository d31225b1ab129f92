package rules

import (
	"log/slog"
	"strings"

	"github.com/centsible/centsible/internal/model"
)

// Evaluate reports whether a rule's criteria match a transaction's
// canonical field dictionary. It never panics or surfaces an error to
// the caller: a rule that cannot be understood must not accidentally
// match everything, so every internal failure degrades to false and is
// logged.
func Evaluate(criteria string, fields map[string]any, schemaVersion int) bool {
	if strings.TrimSpace(criteria) == "" {
		return false
	}

	if schemaVersion == model.SchemaVersionLegacy {
		return evaluateLegacy(criteria, fields)
	}

	root, err := ParseCriteria(criteria)
	if err != nil {
		slog.Error("failed to parse rule criteria", "error", err)
		return false
	}

	matched, evalErr := evaluateNode(root, fields, 0)
	if evalErr != nil {
		slog.Error("criteria evaluation failed", "error", evalErr)
		return false
	}
	return matched
}

// evaluateLegacy handles schema v1 criteria: a flat single condition.
// A missing field or pattern, or a field absent from the transaction's
// fields, never matches.
func evaluateLegacy(criteria string, fields map[string]any) bool {
	legacy := ParseLegacyCriteria(criteria)
	if legacy.Field == "" || legacy.Pattern == "" {
		return false
	}
	if _, ok := fields[legacy.Field]; !ok {
		return false
	}
	matchType := legacy.MatchType
	if matchType == "" {
		matchType = MatchContains
	}
	return matchCondition(&Condition{
		Field:     legacy.Field,
		MatchType: matchType,
		Pattern:   legacy.Pattern,
	}, fields)
}

// evaluateNode recursively evaluates a criteria node. Group children are
// evaluated left to right with short-circuiting: AND stops at the first
// failing child, OR at the first succeeding one. Structural and depth
// errors propagate; they are caught at the Evaluate boundary.
func evaluateNode(node Node, fields map[string]any, depth int) (bool, error) {
	if depth > MaxCriteriaDepth {
		return false, depthErr(depth)
	}

	switch n := node.(type) {
	case *Group:
		switch n.Operator {
		case OpAnd:
			// Vacuously true on an empty child list.
			for _, child := range n.Children {
				matched, err := evaluateNode(child, fields, depth+1)
				if err != nil {
					return false, err
				}
				if !matched {
					return false, nil
				}
			}
			return true, nil
		case OpOr:
			// Vacuously false on an empty child list.
			for _, child := range n.Children {
				matched, err := evaluateNode(child, fields, depth+1)
				if err != nil {
					return false, err
				}
				if matched {
					return true, nil
				}
			}
			return false, nil
		default:
			return false, structureErr("invalid group operator %q", n.Operator)
		}
	case *Condition:
		matched := matchCondition(n, fields)
		if n.Negate {
			matched = !matched
		}
		return matched, nil
	default:
		return false, structureErr("unknown node type %T", node)
	}
}

// matchCondition dispatches a leaf condition to the typed matcher for
// its field. Value errors inside the matchers degrade to false with a
// logged warning; they never abort the enclosing tree.
func matchCondition(cond *Condition, fields map[string]any) bool {
	switch cond.Field {
	case FieldAmount:
		value, ok := toFloat(fields[FieldAmount])
		if !ok {
			slog.Warn("non-numeric amount in transaction fields", "field", cond.Field)
			return false
		}
		return matchNumeric(value, cond.MatchType, cond.Pattern)
	case FieldDate:
		return matchDate(toString(fields[FieldDate]), cond.MatchType, cond.Pattern)
	default:
		return matchString(toString(fields[cond.Field]), cond.MatchType, cond.Pattern)
	}
}
