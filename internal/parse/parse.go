// Package parse turns free-text AI model replies into structured records.
// Models wrap JSON in prose, code fences, or apologies; Extract is a total
// function that never fails, degrading to a needs_review record instead.
package parse

import (
	"encoding/json"
)

// Kind tags the two possible outcomes of Extract. Consumers must branch
// on it rather than guess shape from the presence of keys.
type Kind int

const (
	// Structured means a JSON object was decoded from the reply.
	Structured Kind = iota
	// Degraded means no decodable object was found; the raw reply is
	// preserved for human review.
	Degraded
)

// Result is the outcome of parsing one model reply.
type Result struct {
	Kind        Kind
	Fields      map[string]any // set when Kind == Structured
	RawResponse string         // set when Kind == Degraded
}

// Record returns the storable form of the result: the decoded fields for
// a Structured result, or {raw_response, status: "needs_review"} for a
// Degraded one. Either way the record is non-nil and safe to persist.
func (r Result) Record() map[string]any {
	if r.Kind == Structured {
		return r.Fields
	}
	return map[string]any{
		"raw_response": r.RawResponse,
		"status":       "needs_review",
	}
}

// Extract locates the first outermost balanced-brace span in text and
// decodes it as a JSON object. The scan is aware of string literals and
// escapes, so braces inside quoted values do not terminate the span.
// Extract never panics and never returns an error: any input that does
// not contain a decodable object yields a Degraded result.
func Extract(text string) Result {
	span, ok := objectSpan(text)
	if ok {
		var fields map[string]any
		if err := json.Unmarshal([]byte(span), &fields); err == nil {
			return Result{Kind: Structured, Fields: fields}
		}
	}
	return Result{Kind: Degraded, RawResponse: text}
}

// objectSpan returns the substring from the first '{' to its matching
// closing '}' at depth zero. Returns ok=false when no '{' exists or the
// braces never balance (truncated model output).
func objectSpan(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if start == -1 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// PlanEntry is one per-document instruction of a batch reorder plan.
type PlanEntry struct {
	ID            string `json:"id"`
	NewOrder      int    `json:"new_order"`
	SuggestedName string `json:"suggested_name"`
	Reasoning     string `json:"reasoning"`
}

// ExtractPlan pulls the top-level "documents" list out of a reply. It
// returns ok=false when the reply is degraded or carries no usable list,
// which batch callers escalate to a task failure (there is no
// per-document destination for a raw-text blob at that level).
func ExtractPlan(text string) ([]PlanEntry, bool) {
	res := Extract(text)
	if res.Kind != Structured {
		return nil, false
	}
	raw, ok := res.Fields["documents"]
	if !ok {
		return nil, false
	}
	// Round-trip through JSON to coerce []any into typed entries.
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}
	var entries []PlanEntry
	if err := json.Unmarshal(buf, &entries); err != nil {
		return nil, false
	}
	if len(entries) == 0 {
		return nil, false
	}
	return entries, true
}
