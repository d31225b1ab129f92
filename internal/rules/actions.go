package rules

import (
	"encoding/json"
	"strings"
)

// MaxActionsPerRule bounds how many actions one import rule may carry.
const MaxActionsPerRule = 20

// ActionType identifies the field mutation an action requests.
type ActionType string

// Action types.
const (
	ActionSetCategory  ActionType = "set_category"
	ActionSetVendor    ActionType = "set_vendor"
	ActionSetNotes     ActionType = "set_notes"
	ActionAddTags      ActionType = "add_tags"
	ActionSetAccount   ActionType = "set_account"
	ActionSetType      ActionType = "set_type"
	ActionSetReference ActionType = "set_reference"
)

// validActionTypes is the closed set of recognized action types.
var validActionTypes = map[ActionType]bool{
	ActionSetCategory: true, ActionSetVendor: true, ActionSetNotes: true,
	ActionAddTags: true, ActionSetAccount: true, ActionSetType: true,
	ActionSetReference: true,
}

// Behavior governs whether and how an action overwrites an existing
// field value. Append and merge are only meaningful for notes and tags.
type Behavior string

// Behaviors.
const (
	BehaviorAlways  Behavior = "always"
	BehaviorIfEmpty Behavior = "if_empty"
	BehaviorAppend  Behavior = "append"
	BehaviorReplace Behavior = "replace"
	BehaviorMerge   Behavior = "merge"
)

// defaultActionPriority orders actions within one rule when no explicit
// priority is given.
const defaultActionPriority = 50

// Fixed priorities assigned to actions synthesized from a legacy
// {categoryId, vendor, notes} record.
const (
	legacyCategoryPriority = 100
	legacyVendorPriority   = 90
	legacyNotesPriority    = 80
)

// Action is a single field mutation a matching rule requests.
type Action struct {
	Value     any
	Type      ActionType
	Behavior  Behavior
	Separator string
	Priority  int
}

// ActionList is a rule's resolved action set. StopProcessing is nil when
// the stored blob did not carry the flag; callers treat that as true.
type ActionList struct {
	StopProcessing *bool
	Actions        []Action
}

// rawAction is the v2 wire shape of one action.
type rawAction struct {
	Value     any    `json:"value"`
	Type      string `json:"type"`
	Behavior  string `json:"behavior"`
	Separator string `json:"separator"`
	Priority  *int   `json:"priority"`
}

// rawActionList is the v2 wire shape: {"version":2,"actions":[...],
// "stopProcessing":bool}. The version key is optional.
type rawActionList struct {
	StopProcessing *bool       `json:"stopProcessing"`
	Actions        []rawAction `json:"actions"`
	Version        int         `json:"version"`
}

// legacyActions is the schema v1 action record. Every field is optional.
type legacyActions struct {
	CategoryID *int64  `json:"categoryId"`
	Vendor     *string `json:"vendor"`
	Notes      *string `json:"notes"`
}

// ParseActions resolves a rule's stored actions blob into an ordered
// action list. A blob with an actions array is used as the v2 format
// (with or without an explicit version key); anything else is treated as
// legacy and converted to synthetic v2 actions at fixed descending
// priorities.
func ParseActions(blob string) ActionList {
	trimmed := strings.TrimSpace(blob)
	if trimmed == "" {
		return ActionList{}
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &keys); err != nil {
		return ActionList{}
	}

	if _, ok := keys["actions"]; ok {
		var raw rawActionList
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return ActionList{}
		}
		list := ActionList{StopProcessing: raw.StopProcessing}
		for _, ra := range raw.Actions {
			action := Action{
				Type:      ActionType(ra.Type),
				Value:     ra.Value,
				Behavior:  Behavior(ra.Behavior),
				Separator: ra.Separator,
				Priority:  defaultActionPriority,
			}
			if ra.Priority != nil {
				action.Priority = *ra.Priority
			}
			if action.Behavior == "" {
				action.Behavior = BehaviorAlways
			}
			list.Actions = append(list.Actions, action)
		}
		return list
	}

	return convertLegacyActions(trimmed)
}

// convertLegacyActions synthesizes v2 actions from a legacy
// {categoryId, vendor, notes} record. Legacy rules always stop
// processing.
func convertLegacyActions(blob string) ActionList {
	var legacy legacyActions
	if err := json.Unmarshal([]byte(blob), &legacy); err != nil {
		return ActionList{}
	}

	stop := true
	list := ActionList{StopProcessing: &stop}

	if legacy.CategoryID != nil {
		list.Actions = append(list.Actions, Action{
			Type:     ActionSetCategory,
			Value:    float64(*legacy.CategoryID),
			Behavior: BehaviorAlways,
			Priority: legacyCategoryPriority,
		})
	}
	if legacy.Vendor != nil && *legacy.Vendor != "" {
		list.Actions = append(list.Actions, Action{
			Type:     ActionSetVendor,
			Value:    *legacy.Vendor,
			Behavior: BehaviorAlways,
			Priority: legacyVendorPriority,
		})
	}
	if legacy.Notes != nil && *legacy.Notes != "" {
		list.Actions = append(list.Actions, Action{
			Type:     ActionSetNotes,
			Value:    *legacy.Notes,
			Behavior: BehaviorAlways,
			Priority: legacyNotesPriority,
		})
	}
	return list
}
