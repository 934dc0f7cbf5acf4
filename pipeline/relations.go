package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"papergraph/metrics"
	"papergraph/models"
	"papergraph/tools"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/tidwall/gjson"
)

const relationsPrompt = `You connect research articles into a knowledge graph.
You receive a list of articles, each introduced by its numeric id in brackets.
Propose directed relations between them where the text supports one, for example
EXTENDS, BUILDS_ON, CONTRASTS_WITH, APPLIES_METHOD_OF, ADDRESSES_GAP_OF, SHARES_DATASET.
Answer with a JSON object {"edges": [...]} and nothing else. Each edge is
{"from": <id>, "to": <id>, "relation": "UPPER_SNAKE_CASE", "label": "short explanation", "weight": 0.0-1.0}.
Only use ids from the list. Do not relate an article to itself. Return {"edges": []} when nothing fits.`

// attrExcerpts are the per-attribute bounds tried in turn until every node
// fits the prompt budget.
var attrExcerpts = []int{600, 300, 120}

// Derived is the validated outcome of one relation-derivation reply.
type Derived struct {
	Edges      []models.Edge
	Discarded  int
	Duplicates int
	Unparsable bool
}

// ParseRelations validates a model reply against the set of known node ids.
// Unparsable replies yield an empty result, never an error.
func ParseRelations(raw, userID string, known mapset.Set[int64]) Derived {
	var out Derived
	r, ok := tools.ExtractJSON(raw)
	if !ok {
		out.Unparsable = true
		return out
	}
	if r.IsObject() {
		switch {
		case r.Get("edges").IsArray():
			r = r.Get("edges")
		case r.Get("relations").IsArray():
			r = r.Get("relations")
		default:
			out.Unparsable = true
			return out
		}
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	r.ForEach(func(_, item gjson.Result) bool {
		from := firstOf(item, "from", "source").Int()
		to := firstOf(item, "to", "target").Int()
		relation := tools.NormalizeRelation(firstOf(item, "relation", "type").String())

		if !known.Contains(from) || !known.Contains(to) || from == to || relation == "" {
			out.Discarded++
			return true
		}
		key := fmt.Sprintf("%d|%d|%s", from, to, relation)
		if !seen.Add(key) {
			out.Duplicates++
			return true
		}

		weight := 1.0
		if w := item.Get("weight"); w.Exists() && w.Type != gjson.Null {
			weight = tools.ClampWeight(w.Float())
		}
		out.Edges = append(out.Edges, models.Edge{
			UserID:     userID,
			FromNodeID: from,
			ToNodeID:   to,
			Relation:   relation,
			Label:      strings.TrimSpace(item.Get("label").String()),
			Weight:     weight,
			Origin:     models.EDGE_ORIGIN_LLM,
		})
		return true
	})
	return out
}

func firstOf(item gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := item.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func nodeRecord(n models.Node, limit int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] %s\n", n.ID, n.Title)
	fmt.Fprintf(&sb, "goal: %s\n", tools.Excerpt(n.Goal, limit))
	fmt.Fprintf(&sb, "method: %s\n", tools.Excerpt(n.Method, limit))
	fmt.Fprintf(&sb, "background: %s\n", tools.Excerpt(n.Background, limit))
	fmt.Fprintf(&sb, "future: %s\n", tools.Excerpt(n.Future, limit))
	fmt.Fprintf(&sb, "gaps: %s\n\n", tools.Excerpt(n.Gaps, limit))
	return sb.String()
}

// relationsInput renders one whole record per node within maxTokens, nodes
// ordered by id. Attribute excerpts shrink first; when even the shortest
// excerpts do not fit, the oldest nodes are left out. The newest node is
// always included. It returns the prompt and the nodes it lists.
func relationsInput(nodes []models.Node, maxTokens int) (string, []models.Node) {
	sorted := make([]models.Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var (
		records []string
		kept    []models.Node
	)
	for _, limit := range attrExcerpts {
		records, kept = fitRecords(sorted, limit, maxTokens)
		if len(kept) == len(sorted) {
			break
		}
	}
	return strings.Join(records, ""), kept
}

// fitRecords walks from the newest node back and stops at the first record
// that would overflow the budget.
func fitRecords(nodes []models.Node, limit, maxTokens int) ([]string, []models.Node) {
	records := make([]string, 0, len(nodes))
	used := 0
	first := len(nodes)
	for i := len(nodes) - 1; i >= 0; i-- {
		r := nodeRecord(nodes[i], limit)
		n := tools.CountTokens(r)
		if maxTokens > 0 && used+n > maxTokens && i < len(nodes)-1 {
			break
		}
		records = append(records, r)
		used += n
		first = i
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nodes[first:]
}

// DeriveRelations asks the LLM for edges among nodes. Fewer than two nodes
// cannot relate, so no call is made.
func (p *Pipeline) DeriveRelations(ctx context.Context, userID string, nodes []models.Node) (Derived, error) {
	if len(nodes) < 2 {
		return Derived{}, nil
	}
	llm, err := p.completer()
	if err != nil {
		return Derived{}, err
	}

	input, listed := relationsInput(nodes, p.Opts.MaxInputTokens)
	if len(listed) < len(nodes) {
		p.Log.Info("relation prompt left out oldest nodes", "user_id", userID,
			"listed", len(listed), "total", len(nodes), "max_input_tokens", p.Opts.MaxInputTokens)
	}
	if len(listed) < 2 {
		return Derived{}, nil
	}
	// only listed nodes are valid endpoints
	known := mapset.NewThreadUnsafeSet[int64]()
	for _, n := range listed {
		known.Add(n.ID)
	}

	raw, err := llm.Complete(ctx, tools.CompletionRequest{
		Operation: "relations",
		Model:     p.Opts.Model,
		System:    relationsPrompt,
		Messages:  []tools.ChatTurn{{Role: "user", Content: "Articles:\n\n" + input}},
		JSON:      true,
	})
	if err != nil {
		return Derived{}, err
	}

	d := ParseRelations(raw, userID, known)
	if d.Unparsable {
		p.Log.Warn("relation reply not parsable, no edges derived", "user_id", userID, "reply", tools.Excerpt(raw, 300))
	}
	if d.Discarded > 0 {
		metrics.EdgesDiscarded.Add(float64(d.Discarded))
		p.Log.Info("discarded proposed edges", "user_id", userID, "count", d.Discarded)
	}
	return d, nil
}
