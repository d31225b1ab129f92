package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/importer"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/rules"
	"github.com/centsible/centsible/internal/service"
	"github.com/centsible/centsible/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubParser feeds pre-built records into the engine, standing in for a
// real statement format.
type stubParser struct {
	records []importer.Record
	skipped int
	err     error
}

func (p stubParser) Parse(_ io.Reader) ([]importer.Record, int, error) {
	return p.records, p.skipped, p.err
}

func setupEngine(t *testing.T) (*ImportEngine, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	gw := storage.NewRuleGateways(store)
	return New(store, rules.NewApplicator(gw, gw, gw)), store
}

func seedAccount(t *testing.T, store *storage.SQLiteStorage) *model.Account {
	t.Helper()
	account, err := store.CreateAccount(context.Background(), "Everyday Checking", "checking", "First National")
	require.NoError(t, err)
	return account
}

func seedRule(t *testing.T, store *storage.SQLiteStorage, name, pattern, actions string, priority int) *model.Rule {
	t.Helper()
	criteria := fmt.Sprintf(
		`{"version":2,"root":{"type":"condition","field":"description","matchType":"contains","pattern":%q}}`,
		pattern)
	rule := &model.Rule{
		Name:          name,
		Criteria:      criteria,
		Actions:       actions,
		Priority:      priority,
		SchemaVersion: model.SchemaVersionTree,
		IsActive:      true,
	}
	require.NoError(t, store.CreateRule(context.Background(), rule))
	return rule
}

func record(importID, date, description string, amount float64) importer.Record {
	recordType := importer.TypeDebit
	if amount > 0 {
		recordType = importer.TypeCredit
	}
	return importer.Record{
		ImportID:    importID,
		Date:        date,
		Description: description,
		Amount:      amount,
		Type:        recordType,
	}
}

func TestImport(t *testing.T) {
	engine, store := setupEngine(t)
	ctx := context.Background()
	account := seedAccount(t, store)

	groceries, err := store.CreateCategory(ctx, "Groceries")
	require.NoError(t, err)
	seedRule(t, store, "Groceries", "market",
		fmt.Sprintf(`{"version":2,"actions":[{"type":"set_category","value":%d}]}`, groceries.ID), 10)

	parser := stubParser{records: []importer.Record{
		record("txn-1", "2026-03-01", "CENTRAL MARKET #42", -31.20),
		record("txn-2", "2026-03-02", "PAYROLL DEPOSIT", 1500.00),
	}}

	summary, err := engine.Import(ctx, strings.NewReader(""), parser, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 1, summary.RulesApplied)
	assert.Equal(t, 0, summary.Failures)

	t.Run("matched transaction is categorized", func(t *testing.T) {
		txn, err := store.GetTransactionByImportID(ctx, "txn-1")
		require.NoError(t, err)
		require.NotNil(t, txn.CategoryID)
		assert.Equal(t, groceries.ID, *txn.CategoryID)
		assert.Equal(t, model.TypeExpense, txn.Type)
	})

	t.Run("credit becomes income", func(t *testing.T) {
		txn, err := store.GetTransactionByImportID(ctx, "txn-2")
		require.NoError(t, err)
		assert.Equal(t, model.TypeIncome, txn.Type)
		assert.Nil(t, txn.CategoryID)
	})

	t.Run("reimport counts duplicates", func(t *testing.T) {
		summary, err := engine.Import(ctx, strings.NewReader(""), parser, account.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Imported)
		assert.Equal(t, 2, summary.Duplicates)
	})
}

func TestImport_SkippedRowsCountAsFailures(t *testing.T) {
	engine, store := setupEngine(t)
	account := seedAccount(t, store)

	parser := stubParser{
		records: []importer.Record{record("txn-1", "2026-03-01", "COFFEE", -4.50)},
		skipped: 2,
	}
	summary, err := engine.Import(context.Background(), strings.NewReader(""), parser, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 2, summary.Failures)
}

func TestImport_BadRecordDoesNotAbort(t *testing.T) {
	engine, store := setupEngine(t)
	account := seedAccount(t, store)

	parser := stubParser{records: []importer.Record{
		record("txn-bad", "not a date", "GARBAGE ROW", -1.00),
		record("txn-ok", "2026-03-01", "COFFEE", -4.50),
	}}
	summary, err := engine.Import(context.Background(), strings.NewReader(""), parser, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.Failures)
}

func TestImport_EmptyStatement(t *testing.T) {
	engine, store := setupEngine(t)
	account := seedAccount(t, store)

	_, err := engine.Import(context.Background(), strings.NewReader(""), stubParser{}, account.ID)
	require.ErrorIs(t, err, common.ErrNoTransactions)
}

func TestImport_UnknownAccount(t *testing.T) {
	engine, _ := setupEngine(t)

	_, err := engine.Import(context.Background(), strings.NewReader(""), stubParser{}, 9999)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestImport_CategoryHint(t *testing.T) {
	engine, store := setupEngine(t)
	ctx := context.Background()
	account := seedAccount(t, store)

	utilities, err := store.CreateCategory(ctx, "Utilities")
	require.NoError(t, err)

	known := record("txn-1", "2026-03-01", "POWER CO", -80.00)
	known.CategoryHint = "Utilities"
	unknown := record("txn-2", "2026-03-02", "MYSTERY", -5.00)
	unknown.CategoryHint = "No Such Category"

	summary, err := engine.Import(ctx, strings.NewReader(""), stubParser{records: []importer.Record{known, unknown}}, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Imported)

	txn, err := store.GetTransactionByImportID(ctx, "txn-1")
	require.NoError(t, err)
	require.NotNil(t, txn.CategoryID)
	assert.Equal(t, utilities.ID, *txn.CategoryID)

	txn, err = store.GetTransactionByImportID(ctx, "txn-2")
	require.NoError(t, err)
	assert.Nil(t, txn.CategoryID)
}

func TestImport_StopProcessingOrder(t *testing.T) {
	engine, store := setupEngine(t)
	ctx := context.Background()
	account := seedAccount(t, store)

	coffee, err := store.CreateCategory(ctx, "Coffee")
	require.NoError(t, err)
	dining, err := store.CreateCategory(ctx, "Dining")
	require.NoError(t, err)

	// Higher-priority rule claims the category and stops; the second rule
	// never runs even though its criteria also match.
	seedRule(t, store, "Coffee", "starbucks",
		fmt.Sprintf(`{"version":2,"actions":[{"type":"set_category","value":%d}],"stopProcessing":true}`, coffee.ID), 100)
	seedRule(t, store, "Dining", "starbucks",
		fmt.Sprintf(`{"version":2,"actions":[{"type":"set_category","value":%d}]}`, dining.ID), 10)

	_, err = engine.Import(ctx, strings.NewReader(""),
		stubParser{records: []importer.Record{record("txn-1", "2026-03-01", "STARBUCKS #123", -5.75)}}, account.ID)
	require.NoError(t, err)

	txn, err := store.GetTransactionByImportID(ctx, "txn-1")
	require.NoError(t, err)
	require.NotNil(t, txn.CategoryID)
	assert.Equal(t, coffee.ID, *txn.CategoryID)
}

func TestImport_DeferredTags(t *testing.T) {
	engine, store := setupEngine(t)
	ctx := context.Background()
	account := seedAccount(t, store)

	recurring, err := store.CreateTag(ctx, "recurring")
	require.NoError(t, err)
	seedRule(t, store, "Subscriptions", "netflix",
		fmt.Sprintf(`{"version":2,"actions":[{"type":"add_tags","value":[%d]}]}`, recurring.ID), 10)

	_, err = engine.Import(ctx, strings.NewReader(""),
		stubParser{records: []importer.Record{record("txn-1", "2026-03-01", "NETFLIX.COM", -15.99)}}, account.ID)
	require.NoError(t, err)

	txn, err := store.GetTransactionByImportID(ctx, "txn-1")
	require.NoError(t, err)
	ids, err := store.GetTransactionTagIDs(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{recurring.ID}, ids)
}

func TestImport_Progress(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	var calls [][2]int
	gw := storage.NewRuleGateways(store)
	engine := NewWithConfig(store, rules.NewApplicator(gw, gw, gw), Config{
		OnProgress: func(processed, total int) { calls = append(calls, [2]int{processed, total}) },
	})
	account := seedAccount(t, store)

	parser := stubParser{records: []importer.Record{
		record("txn-1", "2026-03-01", "ONE", -1),
		record("txn-2", "2026-03-02", "TWO", -2),
	}}
	_, err = engine.Import(context.Background(), strings.NewReader(""), parser, account.ID)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, calls)
}

func TestDryRunRule(t *testing.T) {
	engine, store := setupEngine(t)
	ctx := context.Background()
	account := seedAccount(t, store)

	groceries, err := store.CreateCategory(ctx, "Groceries")
	require.NoError(t, err)

	parser := stubParser{records: []importer.Record{
		record("txn-1", "2026-03-01", "CENTRAL MARKET #42", -31.20),
		record("txn-2", "2026-03-02", "PAYROLL DEPOSIT", 1500.00),
	}}
	_, err = engine.Import(ctx, strings.NewReader(""), parser, account.ID)
	require.NoError(t, err)

	rule := &model.Rule{
		Name: "Groceries",
		Criteria: `{"version":2,"root":{"type":"condition",` +
			`"field":"description","matchType":"contains","pattern":"market"}}`,
		Actions:       fmt.Sprintf(`{"version":2,"actions":[{"type":"set_category","value":%d}]}`, groceries.ID),
		SchemaVersion: model.SchemaVersionTree,
	}

	result, err := engine.DryRunRule(ctx, rule, service.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scanned)
	require.Len(t, result.Matches, 1)

	match := result.Matches[0]
	assert.Equal(t, "CENTRAL MARKET #42", match.Transaction.Description)
	require.NotNil(t, match.Transaction.CategoryID)
	assert.Equal(t, groceries.ID, *match.Transaction.CategoryID)

	change, ok := match.Changes["category"]
	require.True(t, ok)
	assert.Equal(t, groceries.ID, change.New)

	t.Run("nothing is persisted", func(t *testing.T) {
		txn, err := store.GetTransactionByImportID(ctx, "txn-1")
		require.NoError(t, err)
		assert.Nil(t, txn.CategoryID)
	})
}
