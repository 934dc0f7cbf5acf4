package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"papergraph/config"
	"papergraph/logger"
	"papergraph/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
)

func init() {
	// all timestamps in UTC; day bucketing and job scheduling rely on it
	gorm.NowFunc = func() time.Time { return time.Now().UTC() }
}

// Connect opens the configured database (sqlite3 by default) and runs
// AutoMigrate when conf.AutoMigrate is set.
func Connect(conf config.Configuration, log *logger.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch conf.Database {
	case "postgres":
		log.Info("using postgres", "host", conf.DbHost, "db", conf.DbName)
		dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
			conf.DbHost, conf.DbPort, conf.DbUser, conf.DbName, conf.DbPass, conf.DbSSLMode)
		db, err = gorm.Open("postgres", dsn)
	default:
		log.Info("using sqlite3", "path", conf.DbPath)
		if dir := filepath.Dir(conf.DbPath); dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("db: create %s: %w", dir, mkErr)
			}
		}
		db, err = gorm.Open("sqlite3", conf.DbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", conf.Database, err)
	}

	db.LogMode(!conf.IsProduction())

	if conf.AutoMigrate {
		if err := Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// OpenMemory returns a private in-memory sqlite database with the schema
// applied. The pool is pinned to one connection since every sqlite :memory:
// connection is its own database.
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	db.DB().SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Article{},
		&models.Node{},
		&models.Edge{},
		&models.BrainstormingSession{},
		&models.Annotation{},
		&models.ChatMessage{},
		&models.Analytics{},
		&models.SyncJob{},
	).Error
}
