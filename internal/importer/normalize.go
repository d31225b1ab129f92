// Package importer converts heterogeneous import-source records
// (CSV rows, OFX entries, QIF entries) into the canonical transaction
// field dictionary the rule engine consumes.
package importer

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/centsible/centsible/internal/common"
)

// Record is the canonical normalized form of one imported transaction.
// Amount is stored as an absolute value; Type carries the sign
// (credit for non-negative source amounts, debit otherwise).
type Record struct {
	Date         string // YYYY-MM-DD
	Type         string // credit or debit
	Description  string
	Vendor       string
	Reference    string
	Memo         string
	SourceID     string // bank transaction id (OFX FITID), if any
	CategoryHint string // QIF category, advisory only
	ImportID     string
	Amount       float64
}

// Record types at the normalizer layer.
const (
	TypeCredit = "credit"
	TypeDebit  = "debit"
)

// Canonical logical field names used in CSV column mappings.
const (
	fieldDate        = "date"
	fieldAmount      = "amount"
	fieldDescription = "description"
	fieldVendor      = "vendor"
	fieldReference   = "reference"
	fieldMemo        = "memo"
)

// MapRowToTransaction normalizes one CSV row using a column mapping of
// logical field name to source column. Mapping entries that are
// booleans, nil, or empty strings are UI configuration flags, not
// column references, and are skipped. A row whose mapped date or amount
// is empty is unusable and fails with a validation error.
func MapRowToTransaction(row map[string]string, mapping map[string]any) (Record, error) {
	record := Record{}

	lookup := func(field string) string {
		column, ok := mapping[field].(string)
		if !ok || column == "" {
			return ""
		}
		return strings.TrimSpace(row[column])
	}

	rawDate := lookup(fieldDate)
	if rawDate == "" {
		return Record{}, common.NewValidationError(fieldDate, "no date value after column mapping")
	}
	rawAmount := lookup(fieldAmount)
	if rawAmount == "" {
		return Record{}, common.NewValidationError(fieldAmount, "no amount value after column mapping")
	}

	date, err := NormalizeDate(rawDate)
	if err != nil {
		return Record{}, err
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return Record{}, common.NewValidationError(fieldAmount, err.Error())
	}

	record.Date = date
	if amount >= 0 {
		record.Type = TypeCredit
		record.Amount = amount
	} else {
		record.Type = TypeDebit
		record.Amount = -amount
	}
	record.Description = strings.TrimSpace(lookup(fieldDescription))
	record.Vendor = lookup(fieldVendor)
	record.Reference = lookup(fieldReference)
	record.Memo = lookup(fieldMemo)
	record.ImportID = GenerateImportID(record)

	return record, nil
}

// NormalizeDate converts any supported date format to YYYY-MM-DD.
// Already-normalized input passes through unchanged, so the function is
// idempotent.
func NormalizeDate(value string) (string, error) {
	parsed, err := common.ParseDate(value)
	if err != nil {
		return "", err
	}
	return parsed.Format(common.ISODate), nil
}

// GenerateImportID computes a stable deduplication key for a record.
// A bank-provided transaction id is globally unique and enables
// cross-import dedup. Without one the id is a content hash over
// date, amount, description and reference — deliberately no file
// identifier, so re-importing the same statement twice yields the same
// id and the duplicate is detected.
func GenerateImportID(record Record) string {
	if record.SourceID != "" {
		return "ofx_fitid_" + record.SourceID
	}
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		record.Date,
		record.Amount,
		record.Description,
		record.Reference)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
