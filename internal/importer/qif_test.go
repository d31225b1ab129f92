package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQIFParser_Parse(t *testing.T) {
	t.Run("bank statement", func(t *testing.T) {
		input := strings.Join([]string{
			"!Type:Bank",
			"D03/15/2026",
			"T-42.50",
			"PSTARBUCKS #123",
			"Mlatte",
			"N1042",
			"LDining",
			"^",
			"D03/16/2026",
			"T1000.00",
			"PPAYROLL",
			"^",
		}, "\n")

		records, failures, err := NewQIFParser().Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Zero(t, failures)
		require.Len(t, records, 2)

		assert.Equal(t, "2026-03-15", records[0].Date)
		assert.Equal(t, TypeDebit, records[0].Type)
		assert.InDelta(t, 42.50, records[0].Amount, 0.0001)
		assert.Equal(t, "STARBUCKS #123", records[0].Description)
		assert.Equal(t, "latte", records[0].Memo)
		assert.Equal(t, "1042", records[0].Reference)
		assert.Equal(t, "Dining", records[0].CategoryHint)
		assert.NotEmpty(t, records[0].ImportID)

		assert.Equal(t, TypeCredit, records[1].Type)
	})

	t.Run("block without date is counted", func(t *testing.T) {
		input := strings.Join([]string{
			"!Type:Bank",
			"T5.00",
			"Pno date here",
			"^",
			"D03/15/2026",
			"T5.00",
			"Pfine",
			"^",
		}, "\n")

		records, failures, err := NewQIFParser().Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, 1, failures)
		require.Len(t, records, 1)
		assert.Equal(t, "fine", records[0].Description)
	})

	t.Run("trailing block without caret still flushes", func(t *testing.T) {
		input := strings.Join([]string{
			"D03/15/2026",
			"T5.00",
			"Pcoffee",
		}, "\n")

		records, failures, err := NewQIFParser().Parse(strings.NewReader(input))
		require.NoError(t, err)
		assert.Zero(t, failures)
		require.Len(t, records, 1)
	})

	t.Run("windows line endings", func(t *testing.T) {
		input := "D03/15/2026\r\nT5.00\r\nPcoffee\r\n^\r\n"

		records, _, err := NewQIFParser().Parse(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "coffee", records[0].Description)
	})
}
