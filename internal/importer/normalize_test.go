package importer

import (
	"testing"

	"github.com/centsible/centsible/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already ISO", input: "2026-03-15", want: "2026-03-15"},
		{name: "US slashes", input: "03/15/2026", want: "2026-03-15"},
		{name: "OFX compact", input: "20260315", want: "2026-03-15"},
		{name: "OFX compact with time", input: "20260315120000", want: "2026-03-15"},
		{name: "dotted European", input: "15.03.2026", want: "2026-03-15"},
		{name: "written month", input: "Mar 15, 2026", want: "2026-03-15"},
		{name: "garbage", input: "someday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDate_Idempotent(t *testing.T) {
	once, err := NormalizeDate("03/15/2026")
	require.NoError(t, err)
	twice, err := NormalizeDate(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestMapRowToTransaction(t *testing.T) {
	mapping := map[string]any{
		"date":        "Date",
		"amount":      "Amount",
		"description": "Description",
		"vendor":      "Payee",
		"reference":   "Ref",
		"memo":        "Memo",
	}

	t.Run("full row", func(t *testing.T) {
		record, err := MapRowToTransaction(map[string]string{
			"Date":        "03/15/2026",
			"Amount":      "-42.50",
			"Description": "  STARBUCKS #123  ",
			"Payee":       "Starbucks",
			"Ref":         "1042",
			"Memo":        "latte",
		}, mapping)
		require.NoError(t, err)

		assert.Equal(t, "2026-03-15", record.Date)
		assert.Equal(t, TypeDebit, record.Type)
		assert.InDelta(t, 42.50, record.Amount, 0.0001)
		assert.Equal(t, "STARBUCKS #123", record.Description)
		assert.Equal(t, "Starbucks", record.Vendor)
		assert.Equal(t, "1042", record.Reference)
		assert.Equal(t, "latte", record.Memo)
		assert.NotEmpty(t, record.ImportID)
	})

	t.Run("positive amount is a credit", func(t *testing.T) {
		record, err := MapRowToTransaction(map[string]string{
			"Date": "2026-03-15", "Amount": "100.00", "Description": "payroll",
		}, mapping)
		require.NoError(t, err)
		assert.Equal(t, TypeCredit, record.Type)
		assert.InDelta(t, 100.0, record.Amount, 0.0001)
	})

	t.Run("missing date fails validation", func(t *testing.T) {
		_, err := MapRowToTransaction(map[string]string{
			"Amount": "1.00", "Description": "x",
		}, mapping)
		require.Error(t, err)

		var verr *common.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "date", verr.Field)
	})

	t.Run("missing amount fails validation", func(t *testing.T) {
		_, err := MapRowToTransaction(map[string]string{
			"Date": "2026-03-15", "Description": "x",
		}, mapping)
		require.Error(t, err)

		var verr *common.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "amount", verr.Field)
	})

	t.Run("non-string mapping entries are skipped", func(t *testing.T) {
		record, err := MapRowToTransaction(map[string]string{
			"Date": "2026-03-15", "Amount": "5.00", "Description": "x",
		}, map[string]any{
			"date":        "Date",
			"amount":      "Amount",
			"description": "Description",
			"vendor":      true,
			"reference":   nil,
			"memo":        "",
		})
		require.NoError(t, err)
		assert.Empty(t, record.Vendor)
		assert.Empty(t, record.Reference)
		assert.Empty(t, record.Memo)
	})
}

func TestGenerateImportID(t *testing.T) {
	t.Run("bank transaction id wins", func(t *testing.T) {
		record := Record{SourceID: "FITID-99", Date: "2026-03-15", Amount: 5}
		assert.Equal(t, "ofx_fitid_FITID-99", GenerateImportID(record))
	})

	t.Run("content hash is stable", func(t *testing.T) {
		record := Record{Date: "2026-03-15", Amount: 5.75, Description: "coffee", Reference: "1"}
		assert.Equal(t, GenerateImportID(record), GenerateImportID(record))
	})

	t.Run("content hash differs by field", func(t *testing.T) {
		a := Record{Date: "2026-03-15", Amount: 5.75, Description: "coffee"}
		b := Record{Date: "2026-03-16", Amount: 5.75, Description: "coffee"}
		assert.NotEqual(t, GenerateImportID(a), GenerateImportID(b))
	})
}
