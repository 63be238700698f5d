// Package llmjson parses structured output from language models that
// only mostly follow instructions: fenced blocks, leading prose and
// trailing commentary around the JSON are all tolerated.
package llmjson

import (
	"encoding/json"
	"strings"
)

// Result carries either the parsed value or, when every candidate
// failed to decode, the raw model output for degraded display.
type Result[T any] struct {
	Parsed bool
	Value  T
	Raw    string
}

// Parse tries progressively looser extractions of raw until one
// decodes as T. It never fails; callers check Parsed.
func Parse[T any](raw string) Result[T] {
	for _, candidate := range candidates(raw) {
		var value T
		if err := json.Unmarshal([]byte(candidate), &value); err == nil {
			return Result[T]{Parsed: true, Value: value, Raw: raw}
		}
	}
	return Result[T]{Raw: strings.TrimSpace(raw)}
}

func candidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	var out []string

	if fenced := fencedBlock(trimmed, "```json"); fenced != "" {
		out = append(out, fenced)
	}
	if fenced := fencedBlock(trimmed, "```"); fenced != "" {
		out = append(out, fenced)
	}
	if obj := delimited(trimmed, '{', '}'); obj != "" {
		out = append(out, obj)
	}
	if arr := delimited(trimmed, '[', ']'); arr != "" {
		out = append(out, arr)
	}
	out = append(out, trimmed)
	return out
}

func fencedBlock(raw, fence string) string {
	start := strings.Index(raw, fence)
	if start < 0 {
		return ""
	}
	rest := raw[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

func delimited(raw string, open, closing byte) string {
	start := strings.IndexByte(raw, open)
	end := strings.LastIndexByte(raw, closing)
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
