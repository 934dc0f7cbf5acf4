package graphdb

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"papergraph/logger"
	"papergraph/metrics"
	"papergraph/models"
)

type GraphNode struct {
	ID         int64  `json:"id"`
	ArticleID  int64  `json:"article_id"`
	Title      string `json:"title"`
	Goal       string `json:"goal"`
	Method     string `json:"method"`
	Background string `json:"background"`
	Future     string `json:"future"`
	Gaps       string `json:"gaps"`
}

// GraphEdge is a relationship read back from the graph database. Kind is the
// relationship type: RELATES for stored edges or one of the similarity types.
type GraphEdge struct {
	ID       int64   `json:"id"`
	From     int64   `json:"from"`
	To       int64   `json:"to"`
	Kind     string  `json:"kind"`
	Relation string  `json:"relation"`
	Label    string  `json:"label"`
	Weight   float64 `json:"weight"`
}

type Neighbor struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Kind     string  `json:"kind"`
	Relation string  `json:"relation"`
	Weight   float64 `json:"weight"`
	Outgoing bool    `json:"outgoing"`
}

// Syncer mirrors relational nodes and edges into the graph database. A Syncer
// built without a Runner turns every call into a logged no-op.
type Syncer struct {
	runner    Runner
	threshold float64
	log       *logger.Logger

	// set once APOC is found missing; later runs go straight to containment
	noAPOC atomic.Bool
}

func NewSyncer(runner Runner, threshold float64, log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.Nop()
	}
	return &Syncer{runner: runner, threshold: threshold, log: log.With("component", "graph-sync")}
}

func (s *Syncer) Enabled() bool {
	return s != nil && s.runner != nil
}

func (s *Syncer) write(ctx context.Context, template, cypher string, params map[string]any) ([]map[string]any, error) {
	rows, err := s.runner.Write(ctx, cypher, params)
	metrics.GraphQueries.WithLabelValues(template, metrics.Status(err)).Inc()
	return rows, err
}

func (s *Syncer) read(ctx context.Context, template, cypher string, params map[string]any) ([]map[string]any, error) {
	rows, err := s.runner.Read(ctx, cypher, params)
	metrics.GraphQueries.WithLabelValues(template, metrics.Status(err)).Inc()
	return rows, err
}

// EnsureSchema creates the Paper id constraint. Failures are logged only;
// restricted users may not be allowed to manage schema.
func (s *Syncer) EnsureSchema(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	for _, q := range []string{cypherConstraint, cypherUserIndex} {
		if _, err := s.write(ctx, "schema", q, nil); err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
		}
	}
}

func paperProps(n models.Node) map[string]any {
	return map[string]any{
		"id":         n.ID,
		"article_id": n.ArticleID,
		"user_id":    n.UserID,
		"title":      n.Title,
		"goal":       n.Goal,
		"method":     n.Method,
		"background": n.Background,
		"future":     n.Future,
		"gaps":       n.Gaps,
	}
}

func edgeProps(e models.Edge) map[string]any {
	return map[string]any{
		"id":       e.ID,
		"from":     e.FromNodeID,
		"to":       e.ToNodeID,
		"relation": e.Relation,
		"label":    e.Label,
		"weight":   e.Weight,
		"origin":   e.Origin,
		"user_id":  e.UserID,
	}
}

// UpsertNodes merges papers without touching anything else.
func (s *Syncer) UpsertNodes(ctx context.Context, nodes []models.Node) (int64, error) {
	if !s.Enabled() || len(nodes) == 0 {
		return 0, nil
	}
	papers := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		papers = append(papers, paperProps(n))
	}
	rows, err := s.write(ctx, "merge_papers", cypherMergePapers, map[string]any{"papers": papers})
	if err != nil {
		return 0, fmt.Errorf("graphdb: merge papers: %w", err)
	}
	return sumMerged(rows), nil
}

// UpsertEdges merges RELATES relationships; endpoints must already exist.
func (s *Syncer) UpsertEdges(ctx context.Context, edges []models.Edge) (int64, error) {
	if !s.Enabled() || len(edges) == 0 {
		return 0, nil
	}
	list := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		list = append(list, edgeProps(e))
	}
	rows, err := s.write(ctx, "merge_edges", cypherMergeEdges, map[string]any{"edges": list})
	if err != nil {
		return 0, fmt.Errorf("graphdb: merge edges: %w", err)
	}
	return sumMerged(rows), nil
}

func (s *Syncer) DeleteNode(ctx context.Context, id int64) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.write(ctx, "delete_paper", cypherDeletePaper, map[string]any{"id": id})
	return err
}

func (s *Syncer) DeleteEdge(ctx context.Context, id int64) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.write(ctx, "delete_edge", cypherDeleteEdge, map[string]any{"id": id})
	return err
}

// SyncUser makes the graph match the user's relational nodes and edges, then
// recomputes the similarity relations. It returns how many papers, edges and
// similarity relationships were merged.
func (s *Syncer) SyncUser(ctx context.Context, userID string, nodes []models.Node, edges []models.Edge) (int64, error) {
	if !s.Enabled() {
		s.log.Debug("graph database not configured, skipping sync", "user_id", userID)
		return 0, nil
	}

	nodeIDs := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		nodeIDs = append(nodeIDs, n.ID)
	}
	edgeIDs := make([]int64, 0, len(edges))
	for _, e := range edges {
		edgeIDs = append(edgeIDs, e.ID)
	}

	if _, err := s.write(ctx, "prune_papers", cypherPruneUserPapers, map[string]any{"user_id": userID, "ids": nodeIDs}); err != nil {
		return 0, fmt.Errorf("graphdb: prune papers: %w", err)
	}
	merged, err := s.UpsertNodes(ctx, nodes)
	if err != nil {
		return merged, err
	}
	if _, err := s.write(ctx, "prune_edges", cypherPruneUserEdges, map[string]any{"user_id": userID, "ids": edgeIDs}); err != nil {
		return merged, fmt.Errorf("graphdb: prune edges: %w", err)
	}
	n, err := s.UpsertEdges(ctx, edges)
	merged += n
	if err != nil {
		return merged, err
	}

	n, err = s.ComputeSimilarities(ctx, userID)
	merged += n
	return merged, err
}

// ComputeSimilarities rebuilds the five similarity relations for the user.
func (s *Syncer) ComputeSimilarities(ctx context.Context, userID string) (int64, error) {
	if !s.Enabled() {
		return 0, nil
	}
	var total int64
	for _, sim := range Similarities {
		params := map[string]any{"user_id": userID, "threshold": s.threshold}
		if _, err := s.write(ctx, "clear_similarity", sim.clearCypher(), params); err != nil {
			return total, fmt.Errorf("graphdb: clear %s: %w", sim.Type, err)
		}

		if !s.noAPOC.Load() {
			rows, err := s.write(ctx, "similarity_scored", sim.scoredCypher(), params)
			if err == nil {
				total += sumMerged(rows)
				continue
			}
			if !IsUnknownFunction(err) {
				return total, fmt.Errorf("graphdb: %s: %w", sim.Type, err)
			}
			s.noAPOC.Store(true)
			s.log.Warn("apoc text similarity unavailable, using substring containment", "error", err)
		}

		rows, err := s.write(ctx, "similarity_contains", sim.containsCypher(), params)
		if err != nil {
			return total, fmt.Errorf("graphdb: %s: %w", sim.Type, err)
		}
		total += sumMerged(rows)
	}
	return total, nil
}

// IsUnknownFunction reports whether err is Neo4j rejecting a procedure or
// function that is not installed.
func IsUnknownFunction(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown function") ||
		strings.Contains(msg, "procedurenotfound") ||
		strings.Contains(msg, "there is no procedure")
}

// Graph reads the user's papers and relationships back from the graph
// database.
func (s *Syncer) Graph(ctx context.Context, userID string) ([]GraphNode, []GraphEdge, error) {
	nodes := []GraphNode{}
	edges := []GraphEdge{}
	if !s.Enabled() {
		return nodes, edges, nil
	}
	params := map[string]any{"user_id": userID}

	rows, err := s.read(ctx, "graph_papers", cypherGraphPapers, params)
	if err != nil {
		return nil, nil, fmt.Errorf("graphdb: read papers: %w", err)
	}
	for _, r := range rows {
		nodes = append(nodes, GraphNode{
			ID:         asInt64(r["id"]),
			ArticleID:  asInt64(r["article_id"]),
			Title:      asString(r["title"]),
			Goal:       asString(r["goal"]),
			Method:     asString(r["method"]),
			Background: asString(r["background"]),
			Future:     asString(r["future"]),
			Gaps:       asString(r["gaps"]),
		})
	}

	rows, err = s.read(ctx, "graph_edges", cypherGraphEdges, params)
	if err != nil {
		return nil, nil, fmt.Errorf("graphdb: read relationships: %w", err)
	}
	for _, r := range rows {
		edges = append(edges, GraphEdge{
			ID:       asInt64(r["id"]),
			From:     asInt64(r["from_id"]),
			To:       asInt64(r["to_id"]),
			Kind:     asString(r["kind"]),
			Relation: asString(r["relation"]),
			Label:    asString(r["label"]),
			Weight:   asFloat(r["weight"]),
		})
	}
	return nodes, edges, nil
}

func (s *Syncer) Neighbors(ctx context.Context, userID string, nodeID int64) ([]Neighbor, error) {
	out := []Neighbor{}
	if !s.Enabled() {
		return out, nil
	}
	rows, err := s.read(ctx, "neighbors", cypherNeighbors, map[string]any{"user_id": userID, "id": nodeID})
	if err != nil {
		return nil, fmt.Errorf("graphdb: neighbors: %w", err)
	}
	for _, r := range rows {
		out = append(out, Neighbor{
			ID:       asInt64(r["id"]),
			Title:    asString(r["title"]),
			Kind:     asString(r["kind"]),
			Relation: asString(r["relation"]),
			Weight:   asFloat(r["weight"]),
			Outgoing: asBool(r["outgoing"]),
		})
	}
	return out, nil
}

func sumMerged(rows []map[string]any) int64 {
	var n int64
	for _, r := range rows {
		n += asInt64(r["merged"])
	}
	return n
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	case int:
		return float64(x)
	}
	return 0
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
