// Package rules implements the import rule engine: boolean criteria
// matching over canonical transaction fields and the action pipeline
// that mutates imported transactions.
package rules

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxCriteriaDepth is the maximum nesting depth of a criteria tree.
// The root node sits at depth 0; exceeding the bound is a fatal
// evaluation error, not a silent truncation.
const MaxCriteriaDepth = 5

// Valid criteria fields.
const (
	FieldDescription = "description"
	FieldVendor      = "vendor"
	FieldReference   = "reference"
	FieldNotes       = "notes"
	FieldAmount      = "amount"
	FieldDate        = "date"
	FieldAccountType = "account_type"
)

// ValidFields is the closed set of fields a condition may reference.
var ValidFields = map[string]bool{
	FieldDescription: true,
	FieldVendor:      true,
	FieldReference:   true,
	FieldNotes:       true,
	FieldAmount:      true,
	FieldDate:        true,
	FieldAccountType: true,
}

// Group operators.
const (
	OpAnd = "AND"
	OpOr  = "OR"
)

// Match types for string fields.
const (
	MatchContains   = "contains"
	MatchStartsWith = "starts_with"
	MatchEndsWith   = "ends_with"
	MatchEquals     = "equals"
	MatchRegex      = "regex"
)

// Match types for amount and date fields (equals is shared).
const (
	MatchGreaterThan = "greater_than"
	MatchLessThan    = "less_than"
	MatchBetween     = "between"
	MatchBefore      = "before"
	MatchAfter       = "after"
)

// stringMatchTypes, amountMatchTypes and dateMatchTypes define which
// match types are legal per field type.
var (
	stringMatchTypes = map[string]bool{
		MatchContains: true, MatchStartsWith: true, MatchEndsWith: true,
		MatchEquals: true, MatchRegex: true,
	}
	amountMatchTypes = map[string]bool{
		MatchEquals: true, MatchGreaterThan: true, MatchLessThan: true, MatchBetween: true,
	}
	dateMatchTypes = map[string]bool{
		MatchEquals: true, MatchBefore: true, MatchAfter: true, MatchBetween: true,
	}
)

// Node is one node of a parsed criteria tree: either a *Group or a
// *Condition. Trees are immutable once parsed from storage.
type Node interface {
	isNode()
}

// Group combines child nodes under a boolean operator.
type Group struct {
	Operator string
	Children []Node
}

func (*Group) isNode() {}

// Condition is a leaf comparison against one transaction field.
// Pattern is a string, a number, or a {min, max} object depending on
// the match type.
type Condition struct {
	Pattern   any
	Field     string
	MatchType string
	Negate    bool
}

func (*Condition) isNode() {}

// criteriaEnvelope is the persisted v2 wire shape: {"version":2,"root":Node}.
type criteriaEnvelope struct {
	Root    json.RawMessage `json:"root"`
	Version int             `json:"version"`
}

// rawNode is the union wire shape of group and condition nodes. A node
// carrying an operator is a group; a node with type "condition" is a
// leaf; anything else is unknown.
type rawNode struct {
	Pattern    any               `json:"pattern"`
	Operator   string            `json:"operator"`
	Type       string            `json:"type"`
	Field      string            `json:"field"`
	MatchType  string            `json:"matchType"`
	Conditions []json.RawMessage `json:"conditions"`
	Negate     bool              `json:"negate"`
}

// ParseCriteria decodes a schema v2 criteria blob into a tree.
// The blob must be a JSON object with a root key.
func ParseCriteria(criteria string) (Node, error) {
	var envelope criteriaEnvelope
	if err := json.Unmarshal([]byte(criteria), &envelope); err != nil {
		return nil, fmt.Errorf("malformed criteria JSON: %w", err)
	}
	if len(envelope.Root) == 0 {
		return nil, fmt.Errorf("criteria missing root node")
	}
	return decodeNode(envelope.Root)
}

func decodeNode(raw json.RawMessage) (Node, error) {
	var rn rawNode
	if err := json.Unmarshal(raw, &rn); err != nil {
		return nil, fmt.Errorf("malformed criteria node: %w", err)
	}

	switch {
	case rn.Operator != "":
		group := &Group{Operator: strings.ToUpper(rn.Operator)}
		for i, rawChild := range rn.Conditions {
			child, err := decodeNode(rawChild)
			if err != nil {
				return nil, fmt.Errorf("condition %d: %w", i, err)
			}
			group.Children = append(group.Children, child)
		}
		return group, nil
	case rn.Type == "condition":
		return &Condition{
			Field:     rn.Field,
			MatchType: rn.MatchType,
			Pattern:   rn.Pattern,
			Negate:    rn.Negate,
		}, nil
	default:
		return nil, fmt.Errorf("unknown node type")
	}
}

// LegacyCondition is the schema v1 flat criteria form: a single
// {field, pattern, matchType} record, or a bare pattern string that
// defaults to a description/contains match.
type LegacyCondition struct {
	Field     string `json:"field"`
	Pattern   string `json:"pattern"`
	MatchType string `json:"matchType"`
}

// ParseLegacyCriteria decodes a schema v1 criteria blob. A blob that is
// not a JSON object is treated as a bare description/contains pattern.
func ParseLegacyCriteria(criteria string) LegacyCondition {
	var legacy LegacyCondition
	if err := json.Unmarshal([]byte(criteria), &legacy); err == nil {
		return legacy
	}
	return LegacyCondition{
		Field:     FieldDescription,
		Pattern:   criteria,
		MatchType: MatchContains,
	}
}
