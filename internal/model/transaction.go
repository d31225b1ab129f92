// Package model defines the core data structures for the centsible application.
package model

import (
	"time"
)

// TransactionType is the direction of a transaction at the ledger layer.
type TransactionType string

// Transaction type constants.
const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Transaction represents a single financial transaction from any source.
// ID is zero until the transaction has been persisted; tag assignment
// requires a persisted identity.
type Transaction struct {
	Date        time.Time
	ImportID    string
	Description string
	Vendor      string
	Notes       string
	Reference   string
	Type        TransactionType
	Amount      float64
	ID          int64
	CategoryID  *int64
	AccountID   int64
}

// MatchFields builds the canonical field dictionary the rule engine
// evaluates against. accountType is the type of the owning account
// (e.g. checking, savings, credit).
func (t *Transaction) MatchFields(accountType string) map[string]any {
	return map[string]any{
		"description":  t.Description,
		"vendor":       t.Vendor,
		"reference":    t.Reference,
		"notes":        t.Notes,
		"amount":       t.Amount,
		"date":         t.Date.Format("2006-01-02"),
		"account_type": accountType,
	}
}
