package router

import (
	"net/http"
	"strings"

	"papergraph/config"
	"papergraph/controllers"
	dbpkg "papergraph/db"
	"papergraph/logger"
	"papergraph/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	DB       *gorm.DB
	Auth     controllers.Authenticator
	Services *controllers.Services
	Log      *logger.Logger
}

// Initialize wires all routes and middlewares: public routes, authenticated
// /api routes and the admin group.
func Initialize(r *gin.Engine, cfg config.Configuration, deps Dependencies) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	r.Use(Logger(log))
	r.Use(dbpkg.WithDB(deps.DB))
	r.Use(controllers.SetServicesToContext(deps.Services))
	r.MaxMultipartMemory = 8 << 20

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Uploaded files when running on the local object store.
	localStore := cfg.Supabase.URL == "" || cfg.Supabase.ServiceKey == ""
	if localStore && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		r.Static(cfg.Storage.PublicBaseURL, cfg.Storage.LocalDir)
	}

	api := r.Group("/api")
	api.Use(controllers.AuthRequired(deps.Auth, cfg.IsAdminEmail))

	api.GET("/me", controllers.Me)

	// Articles
	api.POST("/articles/upload", controllers.UploadArticle)
	api.GET("/articles", controllers.GetArticles)
	api.GET("/articles/:id", controllers.GetArticleByID)
	api.PUT("/articles/:id", controllers.UpdateArticle)
	api.DELETE("/articles/:id", controllers.DeleteArticle)

	// Annotations
	api.GET("/articles/:id/annotations", controllers.GetAnnotations)
	api.POST("/articles/:id/annotations", controllers.CreateAnnotation)

	// Nodes & edges
	api.GET("/nodes", controllers.GetNodes)
	api.GET("/nodes/:id", controllers.GetNodeByID)
	api.PUT("/nodes/:id", controllers.UpdateNode)
	api.GET("/edges", controllers.GetEdges)
	api.POST("/edges", controllers.CreateEdge)
	api.PUT("/edges/:id", controllers.UpdateEdge)
	api.DELETE("/edges/:id", controllers.DeleteEdge)

	// AI
	api.POST("/ai/summarize", controllers.Summarize)
	api.POST("/ai/relations", controllers.DeriveRelations)

	// Chat
	api.POST("/chat", controllers.SendChat)
	api.GET("/chat", controllers.GetChat)

	// Analytics
	api.POST("/analytics", controllers.IngestAnalytics)
	api.GET("/analytics", controllers.GetAnalytics)
	api.GET("/analytics/summary", controllers.GetAnalyticsSummary)

	// Sessions
	api.GET("/sessions", controllers.GetSessions)
	api.POST("/sessions", controllers.CreateSession)
	api.GET("/sessions/:id", controllers.GetSessionByID)
	api.PUT("/sessions/:id", controllers.UpdateSession)
	api.PATCH("/sessions/:id/state", controllers.PatchSessionState)
	api.DELETE("/sessions/:id", controllers.DeleteSession)

	// Graph
	api.GET("/graph", controllers.GetGraph)
	api.GET("/graph/neighbors/:id", controllers.GetNeighbors)
	api.POST("/graph/sync", controllers.SyncGraph)
	api.GET("/graph/sync/:id", controllers.GetSyncJob)

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(RequireAdmin())
	admin.GET("/sync-jobs", controllers.GetSyncJobs)
	admin.DELETE("/analytics", controllers.ClearAnalytics)

	log.Info("routes initialized")
}
