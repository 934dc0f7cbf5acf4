package controllers

import (
	"net/http"

	dbpkg "papergraph/db"
	"papergraph/logger"
	"papergraph/models"
	"papergraph/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// RespondError writes the {"error": msg} body every failing endpoint uses.
func RespondError(c *gin.Context, msg string, status int) {
	c.JSON(status, gin.H{"error": msg})
}

// RespondSuccess writes payload with 200.
func RespondSuccess(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Services holds what handlers need besides the database.
type Services struct {
	Pipeline       *pipeline.Pipeline
	MaxUploadBytes int64
	Log            *logger.Logger
}

const servicesKey = "services"

func SetServicesToContext(s *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(servicesKey, s)
		c.Next()
	}
}

func ServicesInstance(c *gin.Context) *Services {
	v, ok := c.Get(servicesKey)
	if !ok {
		return nil
	}
	s, _ := v.(*Services)
	return s
}

// userAndDB resolves the authenticated user and the database, answering the
// request itself when either is missing.
func userAndDB(c *gin.Context) (models.User, *gorm.DB, bool) {
	user, ok := GetUserLogged(c)
	if !ok {
		RespondError(c, "unauthorized", http.StatusUnauthorized)
		return user, nil, false
	}
	db := dbpkg.DBInstance(c)
	if db == nil {
		RespondError(c, "database not configured", http.StatusInternalServerError)
		return user, nil, false
	}
	return user, db, true
}

func services(c *gin.Context) (*Services, bool) {
	s := ServicesInstance(c)
	if s == nil || s.Pipeline == nil {
		RespondError(c, "services not configured", http.StatusInternalServerError)
		return nil, false
	}
	return s, true
}

func logFor(c *gin.Context) *logger.Logger {
	if s := ServicesInstance(c); s != nil && s.Log != nil {
		return s.Log
	}
	return logger.Nop()
}
