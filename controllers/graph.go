package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	dbpkg "papergraph/db"
	"papergraph/graphdb"
	"papergraph/models"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// graphFilter narrows a graph to a session's visible articles and relations.
// Empty lists mean everything is visible.
type graphFilter struct {
	articles  mapset.Set[int64]
	relations mapset.Set[string]
}

func newGraphFilter(f models.SessionFilter) graphFilter {
	return graphFilter{
		articles:  mapset.NewThreadUnsafeSet(f.ArticleIDs...),
		relations: mapset.NewThreadUnsafeSet(f.Relations...),
	}
}

func (g graphFilter) article(id int64) bool {
	return g.articles.Cardinality() == 0 || g.articles.Contains(id)
}

func (g graphFilter) relation(r string) bool {
	return g.relations.Cardinality() == 0 || g.relations.Contains(r)
}

// GET /api/graph?source=relational|graphdb&session_id=
func GetGraph(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	sessionID, ok := QueryID(c, "session_id")
	if !ok {
		return
	}
	filter := newGraphFilter(models.SessionFilter{})
	if sessionID != nil {
		s, ok := findSession(c, db, user.ID, *sessionID)
		if !ok {
			return
		}
		filter = newGraphFilter(s.DecodeFilter())
	}

	source := strings.ToLower(strings.TrimSpace(c.DefaultQuery("source", "relational")))
	switch source {
	case "relational":
		relationalGraph(c, db, user.ID, filter)
	case "graphdb":
		storedGraph(c, user.ID, filter)
	default:
		RespondError(c, "invalid source (use relational or graphdb)", http.StatusBadRequest)
	}
}

func relationalGraph(c *gin.Context, db *gorm.DB, userID string, filter graphFilter) {
	nodes, err := dbpkg.UserNodes(db, userID)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	edges, err := dbpkg.UserEdges(db, userID)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	visible := mapset.NewThreadUnsafeSet[int64]()
	outNodes := make([]models.Node, 0, len(nodes))
	for _, n := range nodes {
		if filter.article(n.ArticleID) {
			visible.Add(n.ID)
			outNodes = append(outNodes, n)
		}
	}
	outEdges := make([]models.Edge, 0, len(edges))
	for _, e := range edges {
		if visible.Contains(e.FromNodeID, e.ToNodeID) && filter.relation(e.Relation) {
			outEdges = append(outEdges, e)
		}
	}
	RespondSuccess(c, gin.H{"source": "relational", "nodes": outNodes, "edges": outEdges})
}

func storedGraph(c *gin.Context, userID string, filter graphFilter) {
	svc, ok := services(c)
	if !ok {
		return
	}
	if !svc.Pipeline.Graph.Enabled() {
		RespondError(c, "graph database not configured", http.StatusServiceUnavailable)
		return
	}
	nodes, edges, err := svc.Pipeline.Graph.Graph(c.Request.Context(), userID)
	if err != nil {
		logFor(c).Error("graph read failed", "user_id", userID, "error", err)
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}

	visible := mapset.NewThreadUnsafeSet[int64]()
	outNodes := make([]graphdb.GraphNode, 0, len(nodes))
	for _, n := range nodes {
		if filter.article(n.ArticleID) {
			visible.Add(n.ID)
			outNodes = append(outNodes, n)
		}
	}
	outEdges := make([]graphdb.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if visible.Contains(e.From, e.To) && filter.relation(e.Relation) {
			outEdges = append(outEdges, e)
		}
	}
	RespondSuccess(c, gin.H{"source": "graphdb", "nodes": outNodes, "edges": outEdges})
}

// GET /api/graph/neighbors/:id
func GetNeighbors(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	if _, ok := findNode(c, db, user.ID, id); !ok {
		return
	}
	svc, ok := services(c)
	if !ok {
		return
	}
	if !svc.Pipeline.Graph.Enabled() {
		RespondError(c, "graph database not configured", http.StatusServiceUnavailable)
		return
	}
	neighbors, err := svc.Pipeline.Graph.Neighbors(c.Request.Context(), user.ID, id)
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"node_id": id, "neighbors": neighbors})
}

// POST /api/graph/sync queues a full sync of the caller's graph.
func SyncGraph(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	svc, ok := services(c)
	if !ok {
		return
	}
	if !svc.Pipeline.Graph.Enabled() {
		RespondError(c, "graph database not configured", http.StatusServiceUnavailable)
		return
	}
	if !svc.Pipeline.SyncQueued() {
		RespondError(c, "graph sync worker disabled", http.StatusServiceUnavailable)
		return
	}
	job, err := dbpkg.EnqueueSync(db, user.ID, time.Now())
	if err != nil {
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job": job})
}

// GET /api/graph/sync/:id
func GetSyncJob(c *gin.Context) {
	user, db, ok := userAndDB(c)
	if !ok {
		return
	}
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var job models.SyncJob
	if err := db.Where("id = ? AND user_id = ?", id, user.ID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RespondError(c, "sync job not found", http.StatusNotFound)
			return
		}
		RespondError(c, err.Error(), http.StatusInternalServerError)
		return
	}
	RespondSuccess(c, gin.H{"job": job})
}
