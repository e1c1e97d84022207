package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the outcome for one id in a batch.
type Result struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BatchResult aggregates the per-id results of a batch.
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray parses a parameter that is either a single string or
// an array of strings. A single string may hold comma-separated ids.
// Duplicates are dropped, keeping first-seen order.
func ParseStringOrArray(param any, paramName string) ([]string, error) {
	var raw []string

	switch v := param.(type) {
	case nil:
		return nil, fmt.Errorf("%s is required", paramName)
	case string:
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				raw = append(raw, p)
			}
		}
	case []any:
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			str = strings.TrimSpace(str)
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			raw = append(raw, str)
		}
	case []string:
		return ParseStringOrArray(toAny(v), paramName)
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}

	seen := make(map[string]bool, len(raw))
	ids := raw[:0]
	for _, id := range raw {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// Summarize counts the successes and failures in results.
func Summarize(results []Result) BatchResult {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}
	return br
}

// FormatResults renders results as indented JSON with totals.
func FormatResults(results []Result) string {
	jsonBytes, _ := json.MarshalIndent(Summarize(results), "", "  ")
	return string(jsonBytes)
}

// ProcessBatch calls fn for each id in order and collects one Result per id.
// A failing id does not stop the batch. Once ctx is done the remaining ids
// fail with the context error without calling fn.
func ProcessBatch(ctx context.Context, ids []string, fn func(ctx context.Context, id string) (json.RawMessage, error)) []Result {
	results := make([]Result, 0, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			results = append(results, NewErrorResult(id, err))
			continue
		}
		res, err := fn(ctx, id)
		if err != nil {
			results = append(results, NewErrorResult(id, err))
			continue
		}
		results = append(results, NewSuccessResult(id, res))
	}

	return results
}

// NewSuccessResult creates a success result. A nil result is omitted.
func NewSuccessResult(id string, result json.RawMessage) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: result,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
	}
}
