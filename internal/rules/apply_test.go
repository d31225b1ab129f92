package rules

import (
	"context"
	"testing"

	"github.com/centsible/centsible/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func treeRule(name string, priority int, stop *bool, actions string) model.Rule {
	return model.Rule{
		Name:           name,
		Criteria:       condition("description", "contains", "x"),
		Actions:        actions,
		Priority:       priority,
		SchemaVersion:  model.SchemaVersionTree,
		StopProcessing: stop,
		IsActive:       true,
	}
}

func TestApplyRules_FirstWriterWinsAcrossRules(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x"}

	matching := []model.Rule{
		treeRule("first", 100, boolPtr(false),
			`{"version":2,"actions":[{"type":"set_category","value":2}]}`),
		treeRule("second", 50, boolPtr(false),
			`{"version":2,"actions":[{"type":"set_category","value":3}]}`),
	}

	changes, _ := applicator.ApplyRules(context.Background(), txn, matching, 0)

	require.NotNil(t, txn.CategoryID)
	assert.Equal(t, int64(2), *txn.CategoryID, "higher priority rule claims the field")
	assert.Equal(t, int64(2), changes["category"].New)
	assert.Nil(t, changes["category"].Old)
}

func TestApplyRules_StopProcessingBlocksLaterRules(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x"}

	matching := []model.Rule{
		treeRule("stops", 100, boolPtr(true),
			`{"version":2,"actions":[{"type":"set_category","value":2}]}`),
		treeRule("never reached", 50, nil,
			`{"version":2,"actions":[{"type":"set_vendor","value":"Acme"}]}`),
	}

	_, _ = applicator.ApplyRules(context.Background(), txn, matching, 0)

	require.NotNil(t, txn.CategoryID)
	assert.Empty(t, txn.Vendor, "second rule must not run after a stopping rule")
}

func TestApplyRules_StopDefaultsTrue(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x"}

	// Neither the rule entity nor the blob carries a stop flag.
	matching := []model.Rule{
		treeRule("implicit stop", 100, nil,
			`{"version":2,"actions":[{"type":"set_vendor","value":"First"}]}`),
		treeRule("second", 50, nil,
			`{"version":2,"actions":[{"type":"set_reference","value":"R2"}]}`),
	}

	_, _ = applicator.ApplyRules(context.Background(), txn, matching, 0)

	assert.Equal(t, "First", txn.Vendor)
	assert.Empty(t, txn.Reference)
}

func TestApplyRules_BlobStopFlagUsedWhenRuleFlagAbsent(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x"}

	matching := []model.Rule{
		treeRule("continues via blob", 100, nil,
			`{"version":2,"stopProcessing":false,"actions":[{"type":"set_vendor","value":"First"}]}`),
		treeRule("second", 50, nil,
			`{"version":2,"actions":[{"type":"set_reference","value":"R2"}]}`),
	}

	_, _ = applicator.ApplyRules(context.Background(), txn, matching, 0)

	assert.Equal(t, "First", txn.Vendor)
	assert.Equal(t, "R2", txn.Reference)
}

func TestApplyRules_RuleFlagOverridesBlobFlag(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x"}

	matching := []model.Rule{
		treeRule("rule flag wins", 100, boolPtr(true),
			`{"version":2,"stopProcessing":false,"actions":[{"type":"set_vendor","value":"First"}]}`),
		treeRule("second", 50, nil,
			`{"version":2,"actions":[{"type":"set_reference","value":"R2"}]}`),
	}

	_, _ = applicator.ApplyRules(context.Background(), txn, matching, 0)

	assert.Empty(t, txn.Reference)
}

func TestApplyRules_IfEmptyBehavior(t *testing.T) {
	applicator, _ := newTestApplicator()

	t.Run("skips a populated field", func(t *testing.T) {
		txn := &model.Transaction{Description: "x", Vendor: "Existing"}
		matching := []model.Rule{
			treeRule("r", 100, nil,
				`{"version":2,"actions":[{"type":"set_vendor","value":"New","behavior":"if_empty"}]}`),
		}
		changes, _ := applicator.ApplyRules(context.Background(), txn, matching, 0)
		assert.Equal(t, "Existing", txn.Vendor)
		assert.NotContains(t, changes, "vendor")
	})

	t.Run("writes an empty field", func(t *testing.T) {
		txn := &model.Transaction{Description: "x"}
		matching := []model.Rule{
			treeRule("r", 100, nil,
				`{"version":2,"actions":[{"type":"set_vendor","value":"New","behavior":"if_empty"}]}`),
		}
		_, _ = applicator.ApplyRules(context.Background(), txn, matching, 0)
		assert.Equal(t, "New", txn.Vendor)
	})

	t.Run("empty category counts as empty", func(t *testing.T) {
		txn := &model.Transaction{Description: "x"}
		matching := []model.Rule{
			treeRule("r", 100, nil,
				`{"version":2,"actions":[{"type":"set_category","value":1,"behavior":"if_empty"}]}`),
		}
		_, _ = applicator.ApplyRules(context.Background(), txn, matching, 0)
		require.NotNil(t, txn.CategoryID)
		assert.Equal(t, int64(1), *txn.CategoryID)
	})
}

func TestApplyRules_NotesAppendBypassesClaim(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x", Notes: "base"}

	matching := []model.Rule{
		treeRule("first", 100, boolPtr(false),
			`{"version":2,"actions":[{"type":"set_notes","value":"one","behavior":"append"}]}`),
		treeRule("second", 50, boolPtr(false),
			`{"version":2,"actions":[{"type":"set_notes","value":"two","behavior":"append","separator":"; "}]}`),
	}

	changes, _ := applicator.ApplyRules(context.Background(), txn, matching, 0)

	assert.Equal(t, "base one; two", txn.Notes)
	assert.Equal(t, "base one; two", changes["notes"].New)
}

func TestApplyRules_NotesReplaceClaimedOnce(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x"}

	matching := []model.Rule{
		treeRule("first", 100, boolPtr(false),
			`{"version":2,"actions":[{"type":"set_notes","value":"first"}]}`),
		treeRule("second", 50, boolPtr(false),
			`{"version":2,"actions":[{"type":"set_notes","value":"second"}]}`),
	}

	_, _ = applicator.ApplyRules(context.Background(), txn, matching, 0)
	assert.Equal(t, "first", txn.Notes)
}

func TestApplyRules_WithinRulePriorityOrder(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x"}

	// The low-priority action is listed first but must lose the claim.
	matching := []model.Rule{
		treeRule("r", 100, nil, `{"version":2,"actions":[
			{"type":"set_vendor","value":"Low","priority":10},
			{"type":"set_vendor","value":"High","priority":90}]}`),
	}

	_, _ = applicator.ApplyRules(context.Background(), txn, matching, 0)
	assert.Equal(t, "High", txn.Vendor)
}

func TestApplyRules_UnknownReferencesSkipped(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x", AccountID: 1}

	matching := []model.Rule{
		treeRule("r", 100, nil, `{"version":2,"actions":[
			{"type":"set_category","value":999},
			{"type":"set_account","value":999},
			{"type":"set_type","value":"sideways"},
			{"type":"do_something","value":1}]}`),
	}

	changes, _ := applicator.ApplyRules(context.Background(), txn, matching, 0)

	assert.Nil(t, txn.CategoryID)
	assert.Equal(t, int64(1), txn.AccountID)
	assert.Empty(t, string(txn.Type))
	assert.Empty(t, changes)
}

func TestApplyRules_SetType(t *testing.T) {
	applicator, _ := newTestApplicator()
	txn := &model.Transaction{Description: "x", Type: model.TypeExpense}

	matching := []model.Rule{
		treeRule("r", 100, nil,
			`{"version":2,"actions":[{"type":"set_type","value":"Income"}]}`),
	}

	changes, _ := applicator.ApplyRules(context.Background(), txn, matching, 0)

	assert.Equal(t, model.TypeIncome, txn.Type)
	assert.Equal(t, "expense", changes["type"].Old)
}

func TestApplyDeferredTagActions(t *testing.T) {
	t.Run("merge unions with existing tags", func(t *testing.T) {
		applicator, gw := newTestApplicator()
		gw.tags[7] = []model.Tag{{ID: 1}, {ID: 2}}
		txn := &model.Transaction{ID: 7, Description: "x"}

		matching := []model.Rule{
			treeRule("r", 100, nil,
				`{"version":2,"actions":[{"type":"add_tags","value":[2,3],"behavior":"merge"}]}`),
		}
		changes, ledger := applicator.ApplyRules(context.Background(), txn, matching, 0)
		require.True(t, ledger.HasDeferredTags())

		applicator.ApplyDeferredTagActions(context.Background(), txn, ledger, 0, changes)

		require.Len(t, gw.setCalls, 1)
		assert.Equal(t, []int64{1, 2, 3}, gw.setCalls[0])
		assert.Equal(t, []int64{1, 2}, changes["tags"].Old)
		assert.Equal(t, []int64{1, 2, 3}, changes["tags"].New)
	})

	t.Run("replace discards existing tags", func(t *testing.T) {
		applicator, gw := newTestApplicator()
		gw.tags[7] = []model.Tag{{ID: 1}}
		txn := &model.Transaction{ID: 7, Description: "x"}

		matching := []model.Rule{
			treeRule("r", 100, nil,
				`{"version":2,"actions":[{"type":"add_tags","value":[4,5],"behavior":"replace"}]}`),
		}
		changes, ledger := applicator.ApplyRules(context.Background(), txn, matching, 0)
		applicator.ApplyDeferredTagActions(context.Background(), txn, ledger, 0, changes)

		require.Len(t, gw.setCalls, 1)
		assert.Equal(t, []int64{4, 5}, gw.setCalls[0])
	})

	t.Run("unsaved transaction is a no-op", func(t *testing.T) {
		applicator, gw := newTestApplicator()
		txn := &model.Transaction{Description: "x"}

		matching := []model.Rule{
			treeRule("r", 100, nil,
				`{"version":2,"actions":[{"type":"add_tags","value":[1]}]}`),
		}
		changes, ledger := applicator.ApplyRules(context.Background(), txn, matching, 0)
		applicator.ApplyDeferredTagActions(context.Background(), txn, ledger, 0, changes)

		assert.Empty(t, gw.setCalls)
		assert.NotContains(t, changes, "tags")
	})

	t.Run("gateway failure never propagates", func(t *testing.T) {
		applicator, gw := newTestApplicator()
		gw.failTags = true
		txn := &model.Transaction{ID: 7, Description: "x"}

		matching := []model.Rule{
			treeRule("r", 100, nil,
				`{"version":2,"actions":[{"type":"add_tags","value":[1]}]}`),
		}
		changes, ledger := applicator.ApplyRules(context.Background(), txn, matching, 0)
		applicator.ApplyDeferredTagActions(context.Background(), txn, ledger, 0, changes)

		assert.NotContains(t, changes, "tags")
	})
}

func TestValidateActions(t *testing.T) {
	applicator, _ := newTestApplicator()
	ctx := context.Background()

	t.Run("valid v2 list", func(t *testing.T) {
		result := applicator.ValidateActions(ctx, `{"version":2,"actions":[
			{"type":"set_category","value":1},
			{"type":"add_tags","value":[1,2]}]}`, 0)
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("legacy record is trivially valid", func(t *testing.T) {
		result := applicator.ValidateActions(ctx, `{"categoryId":999,"vendor":"x"}`, 0)
		assert.True(t, result.Valid)
	})

	t.Run("problems accumulate", func(t *testing.T) {
		result := applicator.ValidateActions(ctx, `{"version":2,"actions":[
			{"type":"set_category","value":999},
			{"type":"frobnicate","value":1},
			{"type":"set_type","value":"sideways"},
			{"type":"add_tags","value":"not-a-list"}]}`, 0)
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 4)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		result := applicator.ValidateActions(ctx, "{nope", 0)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
	})
}
