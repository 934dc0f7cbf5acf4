package router

import (
	"net/http"

	"papergraph/controllers"

	"github.com/gin-gonic/gin"
)

// RequireAdmin guards the /api/admin group. It runs after the bearer-token
// middleware, so a missing user means the chain was misconfigured.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := controllers.GetUserLogged(c)
		switch {
		case !ok:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "no authenticated user"})
		case !user.Admin:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		default:
			c.Next()
		}
	}
}
