package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/centsible/centsible/internal/model"
)

// FieldChange records one field mutation for the import change log.
type FieldChange struct {
	Old any
	New any
}

// Changes maps logical field names to the mutation applied this pass.
type Changes map[string]FieldChange

// AppliedActions is the transient ledger for one rule-application pass.
// It records which action types have already claimed a field (conflict
// resolution: first writer wins) and holds tag actions deferred until
// the transaction has a persisted identity. It is scoped to a single
// ApplyRules call and never persisted.
type AppliedActions struct {
	claimed      map[ActionType]claimedAction
	deferredTags []Action
}

type claimedAction struct {
	value    any
	priority int
}

// NewAppliedActions creates an empty ledger for one application pass.
func NewAppliedActions() *AppliedActions {
	return &AppliedActions{claimed: make(map[ActionType]claimedAction)}
}

// HasDeferredTags reports whether any tag actions await a persisted
// transaction id.
func (a *AppliedActions) HasDeferredTags() bool {
	return len(a.deferredTags) > 0
}

func (a *AppliedActions) claim(actionType ActionType, priority int, value any) {
	a.claimed[actionType] = claimedAction{priority: priority, value: value}
}

// shouldApply decides whether an action may write its field. A field
// type already claimed earlier in this pass (by a higher-priority rule
// or action) locks out later writers; if_empty additionally requires the
// current value to be empty.
func (a *AppliedActions) shouldApply(actionType ActionType, behavior Behavior, currentValue any) bool {
	if _, taken := a.claimed[actionType]; taken {
		return false
	}
	if behavior == BehaviorIfEmpty {
		return isEmptyValue(currentValue)
	}
	return true
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case *int64:
		return val == nil
	default:
		return false
	}
}

// Applicator applies matching rules' actions to transactions, resolving
// conflicts deterministically across rules and within one rule's action
// list.
type Applicator struct {
	categories CategoryGateway
	accounts   AccountGateway
	tags       TagGateway
}

// NewApplicator creates an applicator backed by the given entity
// gateways.
func NewApplicator(categories CategoryGateway, accounts AccountGateway, tags TagGateway) *Applicator {
	return &Applicator{categories: categories, accounts: accounts, tags: tags}
}

// ApplyRules applies the ordered matching rules to a transaction.
// Rules must already be filtered to the matching subset and ordered by
// rule priority descending. Returns the per-field change log and the
// ledger holding any deferred tag actions; flush those with
// ApplyDeferredTagActions once the transaction is saved.
func (a *Applicator) ApplyRules(ctx context.Context, txn *model.Transaction, matching []model.Rule, userID int64) (Changes, *AppliedActions) {
	changes := Changes{}
	ledger := NewAppliedActions()

	for i := range matching {
		rule := &matching[i]
		list := ParseActions(rule.Actions)
		a.applyRuleActions(ctx, txn, list.Actions, userID, ledger, changes)

		if ruleStops(rule, list) {
			break
		}
	}
	return changes, ledger
}

// ruleStops resolves the effective stop flag: the rule entity's flag
// wins, then the actions blob's, defaulting to true (v1 rules always
// stop).
func ruleStops(rule *model.Rule, list ActionList) bool {
	if rule.StopProcessing != nil {
		return *rule.StopProcessing
	}
	if list.StopProcessing != nil {
		return *list.StopProcessing
	}
	return true
}

// applyRuleActions applies one rule's action list in priority order
// (descending, stable for equal priorities). A failing action is logged
// and skipped; it never aborts the rest of the list.
func (a *Applicator) applyRuleActions(ctx context.Context, txn *model.Transaction, actions []Action, userID int64, ledger *AppliedActions, changes Changes) {
	ordered := make([]Action, len(actions))
	copy(ordered, actions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	for i := range ordered {
		if err := a.applyAction(ctx, txn, &ordered[i], userID, ledger, changes); err != nil {
			slog.Warn("rule action failed",
				"actionType", ordered[i].Type,
				"error", err)
		}
	}
}

// applyAction performs a single field mutation.
func (a *Applicator) applyAction(ctx context.Context, txn *model.Transaction, action *Action, userID int64, ledger *AppliedActions, changes Changes) error {
	switch action.Type {
	case ActionSetCategory:
		return a.applySetCategory(ctx, txn, action, userID, ledger, changes)
	case ActionSetAccount:
		return a.applySetAccount(ctx, txn, action, userID, ledger, changes)
	case ActionSetVendor:
		if !ledger.shouldApply(action.Type, action.Behavior, txn.Vendor) {
			return nil
		}
		newValue := toString(action.Value)
		changes["vendor"] = FieldChange{Old: txn.Vendor, New: newValue}
		txn.Vendor = newValue
		ledger.claim(action.Type, action.Priority, newValue)
		return nil
	case ActionSetReference:
		if !ledger.shouldApply(action.Type, action.Behavior, txn.Reference) {
			return nil
		}
		newValue := toString(action.Value)
		changes["reference"] = FieldChange{Old: txn.Reference, New: newValue}
		txn.Reference = newValue
		ledger.claim(action.Type, action.Priority, newValue)
		return nil
	case ActionSetNotes:
		return applySetNotes(txn, action, ledger, changes)
	case ActionSetType:
		return applySetType(txn, action, ledger, changes)
	case ActionAddTags:
		// Tag association needs a persisted transaction id that may not
		// exist yet mid-import.
		ledger.deferredTags = append(ledger.deferredTags, *action)
		return nil
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

func (a *Applicator) applySetCategory(ctx context.Context, txn *model.Transaction, action *Action, userID int64, ledger *AppliedActions, changes Changes) error {
	if !ledger.shouldApply(action.Type, action.Behavior, txn.CategoryID) {
		return nil
	}
	id, ok := toID(action.Value)
	if !ok {
		slog.Warn("set_category action has a non-numeric value", "value", action.Value)
		return nil
	}
	if _, err := a.categories.FindCategory(ctx, id, userID); err != nil {
		slog.Warn("set_category references a nonexistent category",
			"categoryID", id,
			"error", err)
		return nil
	}

	var old any
	if txn.CategoryID != nil {
		old = *txn.CategoryID
	}
	changes["category"] = FieldChange{Old: old, New: id}
	txn.CategoryID = &id
	ledger.claim(action.Type, action.Priority, id)
	return nil
}

func (a *Applicator) applySetAccount(ctx context.Context, txn *model.Transaction, action *Action, userID int64, ledger *AppliedActions, changes Changes) error {
	if !ledger.shouldApply(action.Type, action.Behavior, txn.AccountID) {
		return nil
	}
	id, ok := toID(action.Value)
	if !ok {
		slog.Warn("set_account action has a non-numeric value", "value", action.Value)
		return nil
	}
	if _, err := a.accounts.FindAccount(ctx, id, userID); err != nil {
		slog.Warn("set_account references a nonexistent account",
			"accountID", id,
			"error", err)
		return nil
	}

	changes["account"] = FieldChange{Old: txn.AccountID, New: id}
	txn.AccountID = id
	ledger.claim(action.Type, action.Priority, id)
	return nil
}

// applySetNotes handles the notes special case: append behavior always
// appends regardless of shouldApply; any other behavior replaces
// wholesale under the normal conflict rules.
func applySetNotes(txn *model.Transaction, action *Action, ledger *AppliedActions, changes Changes) error {
	value := toString(action.Value)

	if action.Behavior == BehaviorAppend {
		old := txn.Notes
		if txn.Notes == "" {
			txn.Notes = value
		} else {
			separator := action.Separator
			if separator == "" {
				separator = " "
			}
			txn.Notes = txn.Notes + separator + value
		}
		changes["notes"] = FieldChange{Old: old, New: txn.Notes}
		ledger.claim(action.Type, action.Priority, txn.Notes)
		return nil
	}

	if !ledger.shouldApply(action.Type, action.Behavior, txn.Notes) {
		return nil
	}
	changes["notes"] = FieldChange{Old: txn.Notes, New: value}
	txn.Notes = value
	ledger.claim(action.Type, action.Priority, value)
	return nil
}

func applySetType(txn *model.Transaction, action *Action, ledger *AppliedActions, changes Changes) error {
	value := model.TransactionType(strings.ToLower(toString(action.Value)))
	if value != model.TypeIncome && value != model.TypeExpense {
		slog.Warn("set_type action has an invalid value", "value", action.Value)
		return nil
	}
	if !ledger.shouldApply(action.Type, action.Behavior, string(txn.Type)) {
		return nil
	}
	changes["type"] = FieldChange{Old: string(txn.Type), New: string(value)}
	txn.Type = value
	ledger.claim(action.Type, action.Priority, string(value))
	return nil
}

// ApplyDeferredTagActions flushes the ledger's deferred tag actions once
// the transaction has a persisted id. Merge behavior unions with the
// accumulated set; any other behavior replaces it. Tag assignment is
// best-effort relative to the rest of the import: failures are logged,
// never propagated.
func (a *Applicator) ApplyDeferredTagActions(ctx context.Context, txn *model.Transaction, ledger *AppliedActions, userID int64, changes Changes) {
	if len(ledger.deferredTags) == 0 {
		return
	}
	if txn.ID == 0 {
		slog.Warn("deferred tag actions require a persisted transaction")
		return
	}

	current, err := a.tags.GetTransactionTags(ctx, txn.ID, userID)
	if err != nil {
		slog.Warn("failed to load transaction tags",
			"transactionID", txn.ID,
			"error", err)
		return
	}

	accumulated := make([]int64, 0, len(current))
	for _, tag := range current {
		accumulated = append(accumulated, tag.ID)
	}
	original := append([]int64(nil), accumulated...)

	for i := range ledger.deferredTags {
		action := &ledger.deferredTags[i]
		ids, ok := toIDSlice(action.Value)
		if !ok {
			slog.Warn("add_tags action value is not a tag id array", "value", action.Value)
			continue
		}
		if action.Behavior == BehaviorMerge {
			accumulated = unionIDs(accumulated, ids)
		} else {
			accumulated = append([]int64(nil), ids...)
		}
	}

	if err := a.tags.SetTransactionTags(ctx, txn.ID, userID, accumulated); err != nil {
		slog.Warn("failed to set transaction tags",
			"transactionID", txn.ID,
			"error", err)
		return
	}
	changes["tags"] = FieldChange{Old: original, New: accumulated}
}

// unionIDs appends ids not already present, preserving order.
func unionIDs(existing, incoming []int64) []int64 {
	seen := make(map[int64]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range incoming {
		if !seen[id] {
			existing = append(existing, id)
			seen[id] = true
		}
	}
	return existing
}

// toID coerces an action value to an entity id.
func toID(v any) (int64, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// toIDSlice coerces an add_tags action value to a list of tag ids.
func toIDSlice(v any) ([]int64, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, idOK := toID(item)
		if !idOK {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// ValidateActions performs a structural check of a rule's actions blob.
// Legacy records are trivially valid; v2 lists are checked for count,
// type, value shape, and resolvable entity references. All problems
// accumulate.
func (a *Applicator) ValidateActions(ctx context.Context, blob string, userID int64) ValidationResult {
	result := ValidationResult{}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &keys); err != nil {
		result.addError("malformed actions JSON: %v", err)
		return result
	}
	if _, ok := keys["actions"]; !ok {
		// Legacy format: no structural check.
		result.Valid = true
		return result
	}

	list := ParseActions(blob)
	if len(list.Actions) > MaxActionsPerRule {
		result.addError("rule has %d actions; maximum is %d", len(list.Actions), MaxActionsPerRule)
	}

	for i := range list.Actions {
		action := &list.Actions[i]
		path := fmt.Sprintf("actions[%d]", i)

		if action.Type == "" {
			result.addError("%s: action missing type", path)
			continue
		}
		if !validActionTypes[action.Type] {
			result.addError("%s: unknown action type %q", path, action.Type)
			continue
		}

		switch action.Type {
		case ActionSetCategory:
			id, ok := toID(action.Value)
			if !ok {
				result.addError("%s: set_category value must be a category id", path)
				continue
			}
			if _, err := a.categories.FindCategory(ctx, id, userID); err != nil {
				result.addError("%s: category %d not found", path, id)
			}
		case ActionSetAccount:
			id, ok := toID(action.Value)
			if !ok {
				result.addError("%s: set_account value must be an account id", path)
				continue
			}
			if _, err := a.accounts.FindAccount(ctx, id, userID); err != nil {
				result.addError("%s: account %d not found", path, id)
			}
		case ActionSetType:
			value := model.TransactionType(strings.ToLower(toString(action.Value)))
			if value != model.TypeIncome && value != model.TypeExpense {
				result.addError("%s: set_type value must be income or expense", path)
			}
		case ActionAddTags:
			if _, ok := toIDSlice(action.Value); !ok {
				result.addError("%s: add_tags value must be an array of tag ids", path)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}
