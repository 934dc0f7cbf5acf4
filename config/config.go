package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Configuration struct {
	ApiPort     string   `yaml:"api_port"`
	Mode        string   `yaml:"mode"` // development | production
	MaxUploadMB int64    `yaml:"max_upload_mb"`
	CORSOrigins []string `yaml:"cors_origins"`

	Database    string `yaml:"database"` // "sqlite3" or "postgres"
	DbHost      string `yaml:"db_host"`
	DbPort      string `yaml:"db_port"`
	DbUser      string `yaml:"db_user"`
	DbName      string `yaml:"db_name"`
	DbPass      string `yaml:"db_pass"`
	DbSSLMode   string `yaml:"db_sslmode"`
	DbPath      string `yaml:"db_path"`
	AutoMigrate bool   `yaml:"auto_migrate"`

	Auth struct {
		Mode        string   `yaml:"mode"` // "supabase" or "jwt"
		JwtSecret   string   `yaml:"jwt_secret"`
		AdminEmails []string `yaml:"admin_emails"`
	} `yaml:"auth"`

	Supabase struct {
		URL        string `yaml:"url"`
		ServiceKey string `yaml:"service_key"`
		Bucket     string `yaml:"bucket"`
	} `yaml:"supabase"`

	Storage struct {
		LocalDir      string `yaml:"local_dir"`
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"storage"`

	Neo4j struct {
		URI                 string  `yaml:"uri"`
		User                string  `yaml:"user"`
		Password            string  `yaml:"password"`
		Database            string  `yaml:"database"`
		TimeoutSeconds      int     `yaml:"timeout_seconds"`
		MaxPoolSize         int     `yaml:"max_pool_size"`
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
	} `yaml:"neo4j"`

	LLM struct {
		APIKey         string  `yaml:"api_key"`
		BaseURL        string  `yaml:"base_url"`
		Model          string  `yaml:"model"`
		ChatModel      string  `yaml:"chat_model"`
		Temperature    float32 `yaml:"temperature"`
		MaxInputTokens int     `yaml:"max_input_tokens"`
		ExcerptChars   int     `yaml:"excerpt_chars"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		ChatHistory    int     `yaml:"chat_history"`
	} `yaml:"llm"`

	Sync struct {
		Enabled         *bool `yaml:"enabled"` // defaults to true when neo4j.uri is set
		IntervalSeconds int   `yaml:"interval_seconds"`
		DebounceSeconds int   `yaml:"debounce_seconds"`
		BatchSize       int   `yaml:"batch_size"`
		Parallelism     int   `yaml:"parallelism"`
	} `yaml:"sync"`
}

// Load reads the YAML file at path (a missing file is not an error), overlays
// environment variables and fills defaults. A .env file in the working
// directory is loaded first when present.
func Load(path string) (Configuration, error) {
	_ = godotenv.Load()

	var c Configuration
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return c, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return c, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	applyEnv(&c)
	applyDefaults(&c)
	return c, c.Validate()
}

func (c Configuration) Validate() error {
	switch c.Database {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("config: unsupported database %q", c.Database)
	}
	switch c.Auth.Mode {
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return errors.New("config: auth mode supabase requires supabase.url and supabase.service_key")
		}
	case "jwt":
		if c.Auth.JwtSecret == "" {
			return errors.New("config: auth mode jwt requires auth.jwt_secret")
		}
	default:
		return fmt.Errorf("config: unsupported auth mode %q", c.Auth.Mode)
	}
	if c.Neo4j.SimilarityThreshold < 0 || c.Neo4j.SimilarityThreshold > 1 {
		return errors.New("config: neo4j.similarity_threshold must be within [0,1]")
	}
	return nil
}

func (c Configuration) IsProduction() bool {
	return strings.EqualFold(c.Mode, "production") || strings.EqualFold(c.Mode, "prod")
}

// SyncEnabled reports whether the graph sync worker runs. Jobs are only
// queued when it does.
func (c Configuration) SyncEnabled() bool {
	if strings.TrimSpace(c.Neo4j.URI) == "" {
		return false
	}
	return c.Sync.Enabled == nil || *c.Sync.Enabled
}

// IsAdminEmail reports whether email is listed in auth.admin_emails.
func (c Configuration) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, e := range c.Auth.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

func applyEnv(c *Configuration) {
	setString(&c.ApiPort, "PORT")
	setString(&c.Mode, "APP_MODE")
	setString(&c.Database, "DB_DRIVER")
	setString(&c.DbHost, "DB_HOST")
	setString(&c.DbPort, "DB_PORT")
	setString(&c.DbUser, "DB_USER")
	setString(&c.DbName, "DB_NAME")
	setString(&c.DbPass, "DB_PASSWORD")
	setString(&c.DbPath, "DB_PATH")
	if v := getenv("AUTOMIGRATE"); v != "" {
		c.AutoMigrate = v == "1" || strings.EqualFold(v, "true")
	}

	setString(&c.Auth.Mode, "AUTH_MODE")
	setString(&c.Auth.JwtSecret, "SUPABASE_JWT_SECRET")
	setString(&c.Auth.JwtSecret, "JWT_SECRET")

	setString(&c.Supabase.URL, "SUPABASE_URL")
	setString(&c.Supabase.ServiceKey, "SUPABASE_SERVICE_ROLE_KEY")
	setString(&c.Supabase.Bucket, "SUPABASE_BUCKET")

	setString(&c.Neo4j.URI, "NEO4J_URI")
	setString(&c.Neo4j.User, "NEO4J_USER")
	setString(&c.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&c.Neo4j.Database, "NEO4J_DATABASE")
	setInt(&c.Neo4j.TimeoutSeconds, "NEO4J_TIMEOUT_SECONDS")

	setString(&c.LLM.APIKey, "OPENAI_API_KEY")
	setString(&c.LLM.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.Model, "OPENAI_MODEL")
	setString(&c.LLM.ChatModel, "OPENAI_CHAT_MODEL")

	setBool(&c.Sync.Enabled, "SYNC_ENABLED")
	setInt(&c.Sync.IntervalSeconds, "SYNC_INTERVAL_SECONDS")
	setInt(&c.Sync.DebounceSeconds, "SYNC_DEBOUNCE_SECONDS")
}

func applyDefaults(c *Configuration) {
	if c.ApiPort == "" {
		c.ApiPort = "8080"
	}
	if c.Mode == "" {
		c.Mode = "development"
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 32
	}
	if c.Database == "" {
		c.Database = "sqlite3"
	}
	if c.Database == "postgresql" {
		c.Database = "postgres"
	}
	if c.DbSSLMode == "" {
		c.DbSSLMode = "disable"
	}
	if c.DbPath == "" {
		c.DbPath = "db/database.db"
	}
	if c.Auth.Mode == "" {
		c.Auth.Mode = "jwt"
	}
	if c.Supabase.Bucket == "" {
		c.Supabase.Bucket = "articles"
	}
	if c.Storage.LocalDir == "" {
		c.Storage.LocalDir = "uploads"
	}
	if c.Storage.PublicBaseURL == "" {
		c.Storage.PublicBaseURL = "/files"
	}
	if c.Neo4j.User == "" {
		c.Neo4j.User = "neo4j"
	}
	if c.Neo4j.TimeoutSeconds <= 0 {
		c.Neo4j.TimeoutSeconds = 10
	}
	if c.Neo4j.MaxPoolSize <= 0 {
		c.Neo4j.MaxPoolSize = 50
	}
	if c.Neo4j.SimilarityThreshold == 0 {
		c.Neo4j.SimilarityThreshold = 0.35
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4.1-mini"
	}
	if c.LLM.ChatModel == "" {
		c.LLM.ChatModel = c.LLM.Model
	}
	if c.LLM.MaxInputTokens <= 0 {
		c.LLM.MaxInputTokens = 12000
	}
	if c.LLM.ExcerptChars <= 0 {
		c.LLM.ExcerptChars = 2000
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = 90
	}
	if c.LLM.ChatHistory <= 0 {
		c.LLM.ChatHistory = 10
	}
	if c.Sync.Enabled == nil {
		enabled := strings.TrimSpace(c.Neo4j.URI) != ""
		c.Sync.Enabled = &enabled
	}
	if c.Sync.IntervalSeconds <= 0 {
		c.Sync.IntervalSeconds = 5
	}
	if c.Sync.DebounceSeconds < 0 {
		c.Sync.DebounceSeconds = 0
	}
	if c.Sync.BatchSize <= 0 {
		c.Sync.BatchSize = 20
	}
	if c.Sync.Parallelism <= 0 {
		c.Sync.Parallelism = 4
	}
}

func getenv(k string) string {
	return strings.TrimSpace(os.Getenv(k))
}

func setString(dst *string, key string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = n
	}
}

func setBool(dst **bool, key string) {
	v := strings.ToLower(getenv(key))
	if v == "" {
		return
	}
	b := v == "1" || v == "true" || v == "yes" || v == "on"
	*dst = &b
}
