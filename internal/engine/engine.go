// Package engine orchestrates statement imports: parsing, deduplication,
// rule evaluation, and action application against stored transactions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/centsible/centsible/internal/common"
	"github.com/centsible/centsible/internal/importer"
	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/rules"
	"github.com/centsible/centsible/internal/service"
)

// ImportEngine drives the import pipeline for a single account.
type ImportEngine struct {
	storage    service.Storage
	applicator *rules.Applicator
	onProgress func(processed, total int)
}

// Config holds configuration options for the import engine.
type Config struct {
	// OnProgress, when set, is called after each record is processed.
	OnProgress func(processed, total int)
}

// New creates a new import engine with the given dependencies.
func New(storage service.Storage, applicator *rules.Applicator) *ImportEngine {
	return NewWithConfig(storage, applicator, Config{})
}

// NewWithConfig creates a new import engine with custom configuration.
func NewWithConfig(storage service.Storage, applicator *rules.Applicator, config Config) *ImportEngine {
	return &ImportEngine{
		storage:    storage,
		applicator: applicator,
		onProgress: config.OnProgress,
	}
}

// ImportSummary reports the outcome of one import run.
type ImportSummary struct {
	Imported     int
	Duplicates   int
	RulesApplied int
	Failures     int
}

// Import parses a statement stream and persists its transactions into
// the given account. Records whose import id already exists in storage
// are counted as duplicates and skipped; active rules are applied to
// every newly imported transaction in priority order.
func (e *ImportEngine) Import(ctx context.Context, reader io.Reader, parser Parser, accountID int64) (*ImportSummary, error) {
	account, err := e.storage.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account %d: %w", accountID, err)
	}

	records, skipped, err := parser.Parse(reader)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 && skipped == 0 {
		return nil, common.ErrNoTransactions
	}

	activeRules, err := e.storage.GetActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	slog.Info("Starting import",
		"account", account.Name,
		"records", len(records),
		"skipped_rows", skipped,
		"active_rules", len(activeRules))

	summary := &ImportSummary{Failures: skipped}
	for i, record := range records {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if err := e.processRecord(ctx, record, account, activeRules, summary); err != nil {
			slog.Warn("Failed to import record",
				"import_id", record.ImportID,
				"description", record.Description,
				"error", err)
			summary.Failures++
		}
		if e.onProgress != nil {
			e.onProgress(i+1, len(records))
		}
	}

	slog.Info("Import complete",
		"imported", summary.Imported,
		"duplicates", summary.Duplicates,
		"rules_applied", summary.RulesApplied,
		"failures", summary.Failures)
	return summary, nil
}

func (e *ImportEngine) processRecord(ctx context.Context, record importer.Record, account *model.Account, activeRules []model.Rule, summary *ImportSummary) error {
	existing, err := e.storage.GetTransactionByImportID(ctx, record.ImportID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if existing != nil {
		summary.Duplicates++
		return nil
	}

	txn, err := e.recordToTransaction(ctx, record, account.ID)
	if err != nil {
		return err
	}

	matching := e.matchRules(txn, account.Type, activeRules)
	changes, applied := e.applicator.ApplyRules(ctx, txn, matching, 0)

	if err := e.storage.SaveTransaction(ctx, txn); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	if applied.HasDeferredTags() {
		e.applicator.ApplyDeferredTagActions(ctx, txn, applied, 0, changes)
	}

	summary.Imported++
	if len(matching) > 0 {
		summary.RulesApplied++
	}
	return nil
}

// matchRules evaluates every active rule against the transaction and
// returns the matches, preserving the priority order of the input.
func (e *ImportEngine) matchRules(txn *model.Transaction, accountType string, activeRules []model.Rule) []model.Rule {
	fields := txn.MatchFields(accountType)
	var matching []model.Rule
	for _, rule := range activeRules {
		if rules.Evaluate(rule.Criteria, fields, rule.SchemaVersion) {
			matching = append(matching, rule)
		}
	}
	return matching
}

// recordToTransaction converts a normalized record into a ledger
// transaction. A QIF category hint is resolved by name when a matching
// category exists; rules applied later take precedence over the hint
// only through their own emptiness semantics.
func (e *ImportEngine) recordToTransaction(ctx context.Context, record importer.Record, accountID int64) (*model.Transaction, error) {
	date, err := common.ParseDate(record.Date)
	if err != nil {
		return nil, err
	}

	txn := &model.Transaction{
		Date:        date,
		ImportID:    record.ImportID,
		Description: record.Description,
		Vendor:      record.Vendor,
		Notes:       record.Memo,
		Reference:   record.Reference,
		Amount:      record.Amount,
		AccountID:   accountID,
	}
	if record.Type == importer.TypeCredit {
		txn.Type = model.TypeIncome
	} else {
		txn.Type = model.TypeExpense
	}

	if record.CategoryHint != "" {
		category, err := e.storage.GetCategoryByName(ctx, record.CategoryHint)
		if err == nil {
			txn.CategoryID = &category.ID
		} else if !errors.Is(err, common.ErrNotFound) {
			slog.Warn("Failed to resolve category hint",
				"hint", record.CategoryHint,
				"error", err)
		}
	}
	return txn, nil
}
