package engine

import (
	"context"
	"fmt"

	"github.com/centsible/centsible/internal/model"
	"github.com/centsible/centsible/internal/rules"
	"github.com/centsible/centsible/internal/service"
)

// DryRunMatch is one transaction a rule matched during a dry run, with
// the field changes the rule would have made.
type DryRunMatch struct {
	Changes     rules.Changes
	Transaction model.Transaction
}

// DryRunResult reports the outcome of testing a rule against stored
// transactions without persisting anything.
type DryRunResult struct {
	Matches []DryRunMatch
	Scanned int
}

// DryRunRule evaluates a rule against stored transactions and applies
// its actions to in-memory copies only. Deferred tag actions are never
// flushed, so a dry run performs no writes.
func (e *ImportEngine) DryRunRule(ctx context.Context, rule *model.Rule, filter service.TransactionFilter) (*DryRunResult, error) {
	transactions, err := e.storage.GetTransactions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	accountTypes := make(map[int64]string)
	result := &DryRunResult{Scanned: len(transactions)}

	for _, txn := range transactions {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		accountType, ok := accountTypes[txn.AccountID]
		if !ok {
			account, err := e.storage.GetAccountByID(ctx, txn.AccountID)
			if err != nil {
				return nil, fmt.Errorf("failed to load account %d: %w", txn.AccountID, err)
			}
			accountType = account.Type
			accountTypes[txn.AccountID] = accountType
		}

		if !rules.Evaluate(rule.Criteria, txn.MatchFields(accountType), rule.SchemaVersion) {
			continue
		}

		work := txn
		changes, _ := e.applicator.ApplyRules(ctx, &work, []model.Rule{*rule}, 0)
		result.Matches = append(result.Matches, DryRunMatch{
			Transaction: work,
			Changes:     changes,
		})
	}

	return result, nil
}
