package tools

import (
	"strings"

	"github.com/tidwall/gjson"
)

// StripCodeFence removes a surrounding markdown code fence (``` or ```json)
// from an LLM reply. Text without a fence is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// drop the info string ("json", "JSON", ...)
		if info := strings.TrimSpace(rest[:nl]); !strings.ContainsAny(info, "{[") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// ExtractJSON returns the first valid JSON object or array found in s after
// fence stripping, trimming prose the model wrapped around it.
func ExtractJSON(s string) (gjson.Result, bool) {
	s = StripCodeFence(s)
	if gjson.Valid(s) {
		r := gjson.Parse(s)
		if r.IsObject() || r.IsArray() {
			return r, true
		}
	}
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		i := strings.Index(s, pair[0])
		j := strings.LastIndex(s, pair[1])
		if i < 0 || j <= i {
			continue
		}
		if cand := s[i : j+1]; gjson.Valid(cand) {
			return gjson.Parse(cand), true
		}
	}
	return gjson.Result{}, false
}
