package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		criteria   string
		wantErrors []string
		wantValid  bool
	}{
		{
			name:      "valid condition",
			criteria:  `{"version":2,"root":{"type":"condition","field":"description","matchType":"contains","pattern":"coffee"}}`,
			wantValid: true,
		},
		{
			name: "valid nested group",
			criteria: `{"version":2,"root":{"operator":"AND","conditions":[
				{"type":"condition","field":"amount","matchType":"between","pattern":{"min":1,"max":10}},
				{"operator":"OR","conditions":[
					{"type":"condition","field":"vendor","matchType":"equals","pattern":"acme"}]}]}}`,
			wantValid: true,
		},
		{
			name:       "malformed JSON",
			criteria:   "{oops",
			wantErrors: []string{"malformed criteria JSON"},
		},
		{
			name:       "missing root",
			criteria:   `{"version":2}`,
			wantErrors: []string{"criteria missing root node"},
		},
		{
			name:       "invalid field",
			criteria:   `{"version":2,"root":{"type":"condition","field":"merchant","matchType":"contains","pattern":"x"}}`,
			wantErrors: []string{`invalid field "merchant"`},
		},
		{
			name:       "string match type on amount",
			criteria:   `{"version":2,"root":{"type":"condition","field":"amount","matchType":"contains","pattern":5}}`,
			wantErrors: []string{`match type "contains" is not valid for field "amount"`},
		},
		{
			name:       "date match type on string field",
			criteria:   `{"version":2,"root":{"type":"condition","field":"vendor","matchType":"before","pattern":"2026-01-01"}}`,
			wantErrors: []string{`match type "before" is not valid for field "vendor"`},
		},
		{
			name:       "missing pattern",
			criteria:   `{"version":2,"root":{"type":"condition","field":"vendor","matchType":"equals"}}`,
			wantErrors: []string{"condition missing pattern"},
		},
		{
			name:       "between pattern missing bounds",
			criteria:   `{"version":2,"root":{"type":"condition","field":"amount","matchType":"between","pattern":{"min":1}}}`,
			wantErrors: []string{"between pattern missing max"},
		},
		{
			name:       "between pattern wrong shape",
			criteria:   `{"version":2,"root":{"type":"condition","field":"amount","matchType":"between","pattern":"1-10"}}`,
			wantErrors: []string{"between pattern must be a {min, max} object"},
		},
		{
			name:       "group missing conditions key",
			criteria:   `{"version":2,"root":{"operator":"AND"}}`,
			wantErrors: []string{"group missing conditions array"},
		},
		{
			name:      "group with empty conditions array is structurally valid",
			criteria:  `{"version":2,"root":{"operator":"AND","conditions":[]}}`,
			wantValid: true,
		},
		{
			name:       "invalid operator",
			criteria:   `{"version":2,"root":{"operator":"XOR","conditions":[]}}`,
			wantErrors: []string{`invalid group operator "XOR"`},
		},
		{
			name: "multiple problems accumulate",
			criteria: `{"version":2,"root":{"operator":"AND","conditions":[
				{"type":"condition","field":"merchant","matchType":"contains","pattern":"x"},
				{"type":"condition","field":"vendor","matchType":"equals"}]}}`,
			wantErrors: []string{`invalid field "merchant"`, "condition missing pattern"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.criteria)
			assert.Equal(t, tt.wantValid, result.Valid)
			if tt.wantValid {
				assert.Empty(t, result.Errors)
				return
			}
			require.NotEmpty(t, result.Errors)
			for _, want := range tt.wantErrors {
				found := false
				for _, got := range result.Errors {
					if strings.Contains(got, want) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected an error containing %q, got %v", want, result.Errors)
			}
		})
	}
}

func TestValidate_DepthLimit(t *testing.T) {
	result := Validate(mustJSON(map[string]any{"version": 2, "root": rawTree(MaxCriteriaDepth + 1)}))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "maximum nesting depth")
}
