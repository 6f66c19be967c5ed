package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStructured(t *testing.T) {
	res := Extract(`Here you go: {"amount": 42, "vendor": "Acme"}`)

	require.Equal(t, Structured, res.Kind)
	assert.Equal(t, float64(42), res.Fields["amount"])
	assert.Equal(t, "Acme", res.Fields["vendor"])

	rec := res.Record()
	assert.Equal(t, "Acme", rec["vendor"])
	assert.NotContains(t, rec, "raw_response")
}

func TestExtractNoBraces(t *testing.T) {
	text := "I could not extract structured data."
	res := Extract(text)

	require.Equal(t, Degraded, res.Kind)
	assert.Equal(t, text, res.RawResponse)

	rec := res.Record()
	assert.Equal(t, text, rec["raw_response"])
	assert.Equal(t, "needs_review", rec["status"])
}

func TestExtractBracesInsideStringLiterals(t *testing.T) {
	// A naive first-'{' to last-'}' scan would mishandle these.
	cases := []struct {
		name string
		text string
		key  string
		want string
	}{
		{
			name: "closing brace in value",
			text: `reply: {"note": "use } carefully", "id": "a"} trailing`,
			key:  "note",
			want: "use } carefully",
		},
		{
			name: "opening brace in value",
			text: `{"template": "render {placeholder} here"}`,
			key:  "template",
			want: "render {placeholder} here",
		},
		{
			name: "escaped quote before brace",
			text: `{"quote": "she said \"}\" loudly"}`,
			key:  "quote",
			want: `she said "}" loudly`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Extract(tc.text)
			require.Equal(t, Structured, res.Kind)
			assert.Equal(t, tc.want, res.Fields[tc.key])
		})
	}
}

func TestExtractNested(t *testing.T) {
	res := Extract(`prefix {"outer": {"inner": {"deep": 1}}, "n": 2} suffix`)
	require.Equal(t, Structured, res.Kind)
	assert.Equal(t, float64(2), res.Fields["n"])
}

func TestExtractDegradedInputs(t *testing.T) {
	// None of these may panic; all must degrade.
	inputs := []string{
		"",
		"{",
		"}",
		"}{",
		`{"truncated": "mid`,
		`{"a": }`,
		"{{{{",
		`[1, 2, 3]`,
		strings.Repeat("{\"x\":", 2000),
		"\x00\xff{not json}",
		`{"unterminated string: "}`,
	}
	for _, in := range inputs {
		res := Extract(in)
		assert.Equal(t, Degraded, res.Kind, "input %q", in)
		assert.Equal(t, in, res.RawResponse)
	}
}

func TestExtractArrayIsDegraded(t *testing.T) {
	// Only objects count; a bare array has no outermost brace span.
	res := Extract(`[{"id": "a"}]`)
	// The span scan finds the inner object, which decodes fine.
	require.Equal(t, Structured, res.Kind)
	assert.Equal(t, "a", res.Fields["id"])
}

func TestExtractPlan(t *testing.T) {
	reply := `Plan follows.
{"documents": [
  {"id": "A", "new_order": 2, "suggested_name": "Contrato_2024.pdf", "reasoning": "signed last"},
  {"id": "B", "new_order": 1, "suggested_name": "Factura_001.pdf", "reasoning": "earliest invoice"}
], "summary": "two documents ordered chronologically"}`

	entries, ok := ExtractPlan(reply)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].ID)
	assert.Equal(t, 2, entries[0].NewOrder)
	assert.Equal(t, "Factura_001.pdf", entries[1].SuggestedName)
	assert.Equal(t, "earliest invoice", entries[1].Reasoning)
}

func TestExtractPlanUnusable(t *testing.T) {
	cases := map[string]string{
		"degraded reply":     "sorry, no plan today",
		"missing list":       `{"summary": "nothing to do"}`,
		"empty list":         `{"documents": []}`,
		"list of wrong type": `{"documents": "all of them"}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := ExtractPlan(text)
			assert.False(t, ok)
		})
	}
}
