package db

import (
	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

type ctxKey string

// gormKey is where WithDB leaves the handle on the gin context.
const gormKey ctxKey = "papergraph.gorm"

// WithDB hands every request the shared gorm handle.
func WithDB(conn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(gormKey), conn)
		c.Next()
	}
}

// DBInstance returns the handle set by WithDB, or nil outside that chain.
func DBInstance(c *gin.Context) *gorm.DB {
	conn, _ := c.Value(string(gormKey)).(*gorm.DB)
	return conn
}

// Transaction runs fn inside a transaction, rolling back when fn returns an
// error or panics.
func Transaction(db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
