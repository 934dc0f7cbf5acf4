package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"papergraph/config"
	"papergraph/controllers"
	"papergraph/db"
	"papergraph/graphdb"
	"papergraph/logger"
	"papergraph/pipeline"
	"papergraph/router"
	"papergraph/storage"
	"papergraph/tools"
	"papergraph/workers"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	conn, err := db.Connect(cfg, log)
	if err != nil {
		log.Fatal("database connection failed", "error", err)
	}
	defer conn.Close()

	store, err := storage.New(cfg, log)
	if err != nil {
		log.Fatal("object store init failed", "error", err)
	}

	var llm tools.Completer
	client, err := tools.NewOpenAIClient(tools.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	}, log)
	switch {
	case errors.Is(err, tools.ErrLLMNotConfigured):
		log.Warn("llm provider not configured, summarize and chat are disabled")
	case err != nil:
		log.Fatal("llm client init failed", "error", err)
	default:
		llm = client
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	neo, err := graphdb.New(cfg, log)
	if err != nil {
		log.Fatal("graph database connection failed", "error", err)
	}
	var runner graphdb.Runner
	if neo != nil {
		runner = neo
		defer neo.Close(context.Background())
	} else {
		log.Warn("neo4j not configured, graph endpoints are disabled")
	}
	syncer := graphdb.NewSyncer(runner, cfg.Neo4j.SimilarityThreshold, log)
	syncer.EnsureSchema(ctx)

	pipe := pipeline.New(llm, tools.PDFExtractor{}, store, syncer, pipeline.OptionsFromConfig(cfg), log)

	if cfg.SyncEnabled() && syncer.Enabled() {
		workers.NewGraphSync(conn, syncer, workers.GraphSyncConfig{
			Interval:    time.Duration(cfg.Sync.IntervalSeconds) * time.Second,
			BatchSize:   cfg.Sync.BatchSize,
			Parallelism: cfg.Sync.Parallelism,
		}, log).Start(ctx)
	}

	authn, err := controllers.NewAuthenticator(cfg)
	if err != nil {
		log.Fatal("authenticator init failed", "error", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	router.Initialize(r, cfg, router.Dependencies{
		DB:   conn,
		Auth: authn,
		Services: &controllers.Services{
			Pipeline:       pipe,
			MaxUploadBytes: cfg.MaxUploadMB << 20,
			Log:            log,
		},
		Log: log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ApiPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", "port", cfg.ApiPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
