package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/seadatafocus/memp_backend/utils"
)

// AuthMiddleware validates the bearer token and stamps the fleet and user
// identity into the request context; every model query is fleet-scoped off
// these values. Requests without a token are rejected before reaching the
// ledger surface.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		token, err := utils.JwtValidate(strings.TrimPrefix(auth, "Bearer "))
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*utils.JwtCustomClaim)
		if !ok || claims.FleetId == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetFleetIdInContext(c.Request.Context(), claims.FleetId)
		ctx = utils.SetUserIdInContext(ctx, claims.ID)
		if claims.Role == "admin" {
			ctx = utils.SetIsAdminInContext(ctx, true)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
