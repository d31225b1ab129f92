package rules

import (
	"encoding/json"
	"fmt"
)

// ValidationResult accumulates structural problems found in a criteria
// tree or action list, for user-facing rule-builder feedback.
type ValidationResult struct {
	Errors []string
	Valid  bool
}

func (r *ValidationResult) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Validate performs a structural-only check of a schema v2 criteria
// blob. No field data is evaluated. All problems are accumulated rather
// than stopping at the first, so a rule builder can show every error at
// once.
func Validate(criteria string) ValidationResult {
	result := ValidationResult{}

	var envelope criteriaEnvelope
	if err := json.Unmarshal([]byte(criteria), &envelope); err != nil {
		result.addError("malformed criteria JSON: %v", err)
		return result
	}
	if len(envelope.Root) == 0 {
		result.addError("criteria missing root node")
		return result
	}

	validateRawNode(envelope.Root, "root", 0, &result)
	result.Valid = len(result.Errors) == 0
	return result
}

func validateRawNode(raw json.RawMessage, path string, depth int, result *ValidationResult) {
	if depth > MaxCriteriaDepth {
		result.addError("%s: exceeds maximum nesting depth of %d", path, MaxCriteriaDepth)
		return
	}

	var rn rawNode
	if err := json.Unmarshal(raw, &rn); err != nil {
		result.addError("%s: malformed node: %v", path, err)
		return
	}

	switch {
	case rn.Operator != "":
		validateRawGroup(&rn, raw, path, depth, result)
	case rn.Type == "condition":
		validateRawCondition(&rn, path, result)
	default:
		result.addError("%s: unknown node type", path)
	}
}

func validateRawGroup(rn *rawNode, raw json.RawMessage, path string, depth int, result *ValidationResult) {
	op := rn.Operator
	if op != OpAnd && op != OpOr && op != "and" && op != "or" {
		result.addError("%s: invalid group operator %q", path, op)
	}

	// Distinguish a missing conditions key from an empty array.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err == nil {
		if _, ok := keys["conditions"]; !ok {
			result.addError("%s: group missing conditions array", path)
			return
		}
	}

	for i, rawChild := range rn.Conditions {
		validateRawNode(rawChild, fmt.Sprintf("%s.conditions[%d]", path, i), depth+1, result)
	}
}

func validateRawCondition(rn *rawNode, path string, result *ValidationResult) {
	if rn.Field == "" {
		result.addError("%s: condition missing field", path)
	} else if !ValidFields[rn.Field] {
		result.addError("%s: invalid field %q", path, rn.Field)
	}

	if rn.MatchType == "" {
		result.addError("%s: condition missing matchType", path)
	} else if rn.Field != "" && ValidFields[rn.Field] {
		var valid bool
		switch rn.Field {
		case FieldAmount:
			valid = amountMatchTypes[rn.MatchType]
		case FieldDate:
			valid = dateMatchTypes[rn.MatchType]
		default:
			valid = stringMatchTypes[rn.MatchType]
		}
		if !valid {
			result.addError("%s: match type %q is not valid for field %q", path, rn.MatchType, rn.Field)
		}
	}

	if rn.Pattern == nil {
		result.addError("%s: condition missing pattern", path)
		return
	}

	if rn.MatchType == MatchBetween {
		bounds, ok := rn.Pattern.(map[string]any)
		if !ok {
			result.addError("%s: between pattern must be a {min, max} object", path)
			return
		}
		if _, ok := bounds["min"]; !ok {
			result.addError("%s: between pattern missing min", path)
		}
		if _, ok := bounds["max"]; !ok {
			result.addError("%s: between pattern missing max", path)
		}
	}
}
