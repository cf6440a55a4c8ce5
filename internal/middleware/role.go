package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vabboost/internal/domain"
	"vabboost/internal/pkg/response"
)

// RequireRole ensures that the authenticated principal has the specified role.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(CtxRole)
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "Role not found in token")
			return
		}
		if role != requiredRole {
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRole(domain.RoleAdmin)
}
