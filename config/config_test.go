package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "APP_MODE", "DB_DRIVER", "AUTH_MODE", "JWT_SECRET", "SUPABASE_JWT_SECRET",
		"OPENAI_MODEL", "OPENAI_CHAT_MODEL", "NEO4J_URI", "SYNC_ENABLED"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.ApiPort)
	assert.Equal(t, "sqlite3", c.Database)
	assert.Equal(t, "jwt", c.Auth.Mode)
	assert.Equal(t, "s3cret", c.Auth.JwtSecret)
	assert.Equal(t, "articles", c.Supabase.Bucket)
	assert.InDelta(t, 0.35, c.Neo4j.SimilarityThreshold, 1e-9)
	assert.Equal(t, c.LLM.Model, c.LLM.ChatModel)
	assert.False(t, c.IsProduction())
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
api_port: "9090"
mode: production
database: postgresql
auth:
  mode: jwt
  jwt_secret: from-file
  admin_emails: ["Root@Example.com"]
neo4j:
  uri: bolt://localhost:7687
  similarity_threshold: 0.5
llm:
  model: small-model
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("OPENAI_MODEL", "env-model")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", c.ApiPort)
	assert.Equal(t, "postgres", c.Database)
	assert.Equal(t, "from-file", c.Auth.JwtSecret)
	assert.Equal(t, "env-model", c.LLM.Model)
	assert.Equal(t, "env-model", c.LLM.ChatModel)
	assert.InDelta(t, 0.5, c.Neo4j.SimilarityThreshold, 1e-9)
	assert.True(t, c.IsProduction())
	assert.True(t, c.IsAdminEmail("root@example.com"))
	assert.False(t, c.IsAdminEmail(""))
}

func TestValidateRejectsIncompleteAuth(t *testing.T) {
	var c Configuration
	c.Database = "sqlite3"
	c.Auth.Mode = "supabase"
	assert.Error(t, c.Validate())

	c.Auth.Mode = "jwt"
	assert.Error(t, c.Validate())

	c.Auth.JwtSecret = "x"
	assert.NoError(t, c.Validate())

	c.Database = "mysql"
	assert.Error(t, c.Validate())
}

func TestSyncWorkerFollowsNeo4j(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	c, err := Load(missing)
	require.NoError(t, err)
	assert.False(t, c.SyncEnabled())

	t.Setenv("NEO4J_URI", "bolt://localhost:7687")
	c, err = Load(missing)
	require.NoError(t, err)
	require.NotNil(t, c.Sync.Enabled)
	assert.True(t, *c.Sync.Enabled)
	assert.True(t, c.SyncEnabled())

	t.Setenv("SYNC_ENABLED", "false")
	c, err = Load(missing)
	require.NoError(t, err)
	assert.False(t, c.SyncEnabled())
}

func TestSyncDisabledInFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
neo4j:
  uri: bolt://graph:7687
sync:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.False(t, c.SyncEnabled())
}
