package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"storefront/internal/auth"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// Authentication validates the bearer token and loads the subject user onto
// the request context. A token whose user no longer exists is rejected.
func (m *Mid) Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		authHeader := c.Request.Header.Get("Authorization")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			slog.Error("missing or malformed authorization header", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "expected authorization header format: Bearer <token>"})
			return
		}

		claims, err := m.a.ValidateToken(parts[1])
		if err != nil {
			slog.Error("token validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		user, err := m.u.ByID(c.Request.Context(), claims.Subject)
		if err != nil {
			slog.Error("token subject not found", slog.String(logkey.TraceID, traceId), slog.String("user_id", claims.Subject))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		ctx = context.WithValue(ctx, auth.UserKey, user)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Authorize gates a handler behind a role. Ordinary users pass any
// non-admin gate; admin routes require the is_admin flag.
func (m *Mid) Authorize(next gin.HandlerFunc, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := ctxmanage.GetTraceIdOfRequest(c)

		user, ok := auth.UserFromContext(c.Request.Context())
		if !ok {
			slog.Error("user not found on request context", slog.String(logkey.TraceID, traceId))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": http.StatusText(http.StatusUnauthorized)})
			return
		}

		if role == auth.RoleAdmin && !user.IsAdmin {
			slog.Error("admin route denied", slog.String(logkey.TraceID, traceId), slog.String("user_id", user.ID))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		next(c)
	}
}
