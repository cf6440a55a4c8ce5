package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"vabboost/internal/pkg/jwt"
	"vabboost/internal/pkg/response"
)

// Context keys set by AdminJWTAuth.
const (
	CtxAdminID  = "admin_id"
	CtxUsername = "username"
	CtxRole     = "role"
)

// AdminJWTAuth requires "Authorization: Bearer <token>" signed by jwtService.
func AdminJWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Abort(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			response.Abort(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, response.CodeInvalidToken, "Invalid or expired token")
			return
		}

		c.Set(CtxAdminID, claims.AdminID)
		c.Set(CtxUsername, claims.Username)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}
