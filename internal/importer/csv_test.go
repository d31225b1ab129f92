package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVParser_Parse(t *testing.T) {
	mapping := map[string]any{
		"date":        "Date",
		"amount":      "Amount",
		"description": "Description",
	}

	t.Run("well-formed file", func(t *testing.T) {
		input := strings.Join([]string{
			"Date,Amount,Description",
			"2026-03-15,-42.50,STARBUCKS #123",
			"03/16/2026,1000.00,PAYROLL",
		}, "\n")

		records, failures, err := NewCSVParser(mapping).Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Zero(t, failures)
		require.Len(t, records, 2)

		assert.Equal(t, "2026-03-15", records[0].Date)
		assert.Equal(t, TypeDebit, records[0].Type)
		assert.Equal(t, "2026-03-16", records[1].Date)
		assert.Equal(t, TypeCredit, records[1].Type)
	})

	t.Run("unusable rows are counted not fatal", func(t *testing.T) {
		input := strings.Join([]string{
			"Date,Amount,Description",
			"2026-03-15,5.00,ok",
			"not-a-date,5.00,bad date",
			"2026-03-17,,missing amount",
		}, "\n")

		records, failures, err := NewCSVParser(mapping).Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 2, failures)
		require.Len(t, records, 1)
		assert.Equal(t, "ok", records[0].Description)
	})

	t.Run("missing header is fatal", func(t *testing.T) {
		_, _, err := NewCSVParser(mapping).Parse(strings.NewReader(""))
		require.Error(t, err)
	})

	t.Run("extra columns ignored", func(t *testing.T) {
		input := strings.Join([]string{
			"Date,Amount,Description,Balance",
			"2026-03-15,5.00,coffee,1234.00",
		}, "\n")

		records, failures, err := NewCSVParser(mapping).Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Zero(t, failures)
		require.Len(t, records, 1)
	})
}
