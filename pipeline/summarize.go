package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"papergraph/tools"

	"github.com/tidwall/gjson"
)

var ErrSummaryFormat = errors.New("summary: model did not return a JSON object")

var summaryFields = []string{"goal", "method", "background", "future", "gaps"}

type Summary struct {
	Title      string `json:"title,omitempty"`
	Goal       string `json:"goal"`
	Method     string `json:"method"`
	Background string `json:"background"`
	Future     string `json:"future"`
	Gaps       string `json:"gaps"`
}

const summarizePrompt = `You read research articles and describe them for a literature map.
Answer with a single JSON object and nothing else, using exactly these keys:
  "title":      the article title as printed, or "" if unclear,
  "goal":       the problem or objective the authors pursue,
  "method":     how they approach it (techniques, data, experiments),
  "background": the prior work and context the article builds on,
  "future":     future work the authors propose,
  "gaps":       limitations or open gaps the article leaves.
Each value is plain prose of one to four sentences in the article's language.`

// ParseSummary accepts a raw model reply, with or without a code fence, and
// requires every summary field to be present.
func ParseSummary(raw string) (Summary, error) {
	var s Summary
	r, ok := tools.ExtractJSON(raw)
	if !ok || !r.IsObject() {
		return s, ErrSummaryFormat
	}

	var missing []string
	for _, f := range summaryFields {
		if !r.Get(f).Exists() {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return s, fmt.Errorf("summary: missing fields %s", strings.Join(missing, ", "))
	}

	s.Title = text(r.Get("title"))
	s.Goal = text(r.Get("goal"))
	s.Method = text(r.Get("method"))
	s.Background = text(r.Get("background"))
	s.Future = text(r.Get("future"))
	s.Gaps = text(r.Get("gaps"))
	return s, nil
}

// text flattens list answers ("gaps": ["a", "b"]) into lines.
func text(v gjson.Result) string {
	if v.IsArray() {
		var parts []string
		v.ForEach(func(_, item gjson.Result) bool {
			if t := strings.TrimSpace(item.String()); t != "" {
				parts = append(parts, t)
			}
			return true
		})
		return strings.Join(parts, "\n")
	}
	if v.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// Summarize sends the article text, cut to the token budget, to the LLM.
func (p *Pipeline) Summarize(ctx context.Context, articleText string) (Summary, error) {
	llm, err := p.completer()
	if err != nil {
		return Summary{}, err
	}
	articleText = strings.TrimSpace(articleText)
	if articleText == "" {
		return Summary{}, tools.ErrNoText
	}
	body, cut := tools.TruncateTokens(articleText, p.Opts.MaxInputTokens)
	if cut {
		p.Log.Debug("article text truncated for summary", "max_input_tokens", p.Opts.MaxInputTokens)
	}

	raw, err := llm.Complete(ctx, tools.CompletionRequest{
		Operation: "summarize",
		Model:     p.Opts.Model,
		System:    summarizePrompt,
		Messages:  []tools.ChatTurn{{Role: "user", Content: "Article text:\n\n" + body}},
		JSON:      true,
	})
	if err != nil {
		return Summary{}, err
	}

	s, err := ParseSummary(raw)
	if err != nil {
		p.Log.Warn("summary parse failed", "error", err, "reply", tools.Excerpt(raw, 300))
		return Summary{}, err
	}
	return s, nil
}
