package controllers

import (
	"net/http"
	"strings"
	"time"

	dbpkg "papergraph/db"
	"papergraph/models"

	"github.com/gin-gonic/gin"
)

const ctxUserKey = "auth_user"

// AuthRequired validates the Bearer token and upserts the local user row.
// isAdmin decides the admin flag from the token's email.
func AuthRequired(authn Authenticator, isAdmin func(email string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			RespondError(c, "missing bearer token", http.StatusUnauthorized)
			c.Abort()
			return
		}
		token := strings.TrimSpace(h[len("Bearer "):])
		identity, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			logFor(c).Debug("token rejected", "error", err)
			RespondError(c, "invalid token", http.StatusUnauthorized)
			c.Abort()
			return
		}

		db := dbpkg.DBInstance(c)
		if db == nil {
			RespondError(c, "database not configured", http.StatusInternalServerError)
			c.Abort()
			return
		}

		admin := isAdmin != nil && isAdmin(identity.Email)
		now := time.Now()
		var user models.User
		if err := db.Where(models.User{ID: identity.ID}).
			Assign(map[string]interface{}{"email": identity.Email, "admin": admin, "last_seen": now}).
			FirstOrCreate(&user).Error; err != nil {
			logFor(c).Error("user upsert failed", "user_id", identity.ID, "error", err)
			RespondError(c, "user lookup failed", http.StatusInternalServerError)
			c.Abort()
			return
		}

		c.Set(ctxUserKey, user)
		c.Next()
	}
}

// GetUserLogged returns the user loaded by AuthRequired.
func GetUserLogged(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}
