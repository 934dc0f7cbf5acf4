package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"papergraph/config"
	"papergraph/controllers"
	"papergraph/db"
	"papergraph/graphdb"
	"papergraph/logger"
	"papergraph/models"
	"papergraph/workers"
)

// papergraph-admin runs one maintenance command against the configured
// backends and exits.
func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML configuration file")
		cmd        = flag.String("cmd", "", "check-db | check-graph | sync-user | clear-analytics | issue-token")
		user       = flag.String("user", "", "user id for sync-user and issue-token")
		email      = flag.String("email", "", "email claim for issue-token")
		ttl        = flag.Duration("ttl", 24*time.Hour, "token lifetime for issue-token")
		eventType  = flag.String("event-type", "", "only clear analytics of this type")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("load config: %v", err)
	}
	log, err := logger.New(cfg.Mode)
	if err != nil {
		fail("init logger: %v", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch strings.TrimSpace(*cmd) {
	case "check-db":
		conn, err := db.Connect(cfg, log)
		if err != nil {
			fail("connect: %v", err)
		}
		defer conn.Close()
		if err := conn.DB().PingContext(ctx); err != nil {
			fail("ping: %v", err)
		}
		var articles, edges int
		conn.Model(&models.Article{}).Count(&articles)
		conn.Model(&models.Edge{}).Count(&edges)
		fmt.Printf("database ok: %d articles, %d edges\n", articles, edges)

	case "check-graph":
		client, err := graphdb.New(cfg, log)
		if err != nil {
			fail("connect: %v", err)
		}
		if client == nil {
			fail("neo4j.uri is not configured")
		}
		defer client.Close(ctx)
		rows, err := client.Read(ctx, "MATCH (p:Paper) RETURN count(p) AS papers", nil)
		if err != nil {
			fail("query: %v", err)
		}
		fmt.Printf("graph ok: %v papers\n", rows[0]["papers"])

	case "sync-user":
		if *user == "" {
			fail("-user is required")
		}
		conn, err := db.Connect(cfg, log)
		if err != nil {
			fail("connect: %v", err)
		}
		defer conn.Close()
		client, err := graphdb.New(cfg, log)
		if err != nil || client == nil {
			fail("neo4j unavailable: %v", err)
		}
		defer client.Close(ctx)
		syncer := graphdb.NewSyncer(client, cfg.Neo4j.SimilarityThreshold, log)
		syncer.EnsureSchema(ctx)
		merged, err := workers.NewGraphSync(conn, syncer, workers.GraphSyncConfig{}, log).SyncUser(ctx, *user)
		if err != nil {
			fail("sync: %v", err)
		}
		fmt.Printf("synced user %s: %d relationships merged\n", *user, merged)

	case "clear-analytics":
		conn, err := db.Connect(cfg, log)
		if err != nil {
			fail("connect: %v", err)
		}
		defer conn.Close()
		q := conn.Where("1 = 1")
		if *eventType != "" {
			q = conn.Where("event_type = ?", *eventType)
		}
		res := q.Delete(&models.Analytics{})
		if res.Error != nil {
			fail("delete: %v", res.Error)
		}
		fmt.Printf("deleted %d analytics rows\n", res.RowsAffected)

	case "issue-token":
		if cfg.Auth.Mode != "jwt" {
			fail("issue-token requires auth.mode jwt")
		}
		if *user == "" {
			fail("-user is required")
		}
		token, err := controllers.SignToken(cfg.Auth.JwtSecret, *user, *email, *ttl)
		if err != nil {
			fail("sign: %v", err)
		}
		fmt.Println(token)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
