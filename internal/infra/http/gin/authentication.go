package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"venuehire/internal/app/middleware"
)

const (
	principalContextKey = "venuehire.principal"

	// Identity is asserted by the gateway in front of the API.
	headerUserID    = "X-User-ID"
	headerUserRoles = "X-User-Roles"

	roleHost = "host"
)

// AuthMiddleware trusts the gateway identity headers and stores the caller in
// both the gin context and the request context, where the command and query
// authorization middleware reads it.
type AuthMiddleware struct{}

func (m AuthMiddleware) Handle(c *gin.Context) {
	id := strings.TrimSpace(c.GetHeader(headerUserID))
	if id == "" {
		c.Next()
		return
	}
	p := middleware.Principal{ID: id, Roles: splitCSV(c.GetHeader(headerUserRoles))}
	c.Set(principalContextKey, p)
	c.Request = c.Request.WithContext(middleware.WithPrincipal(c.Request.Context(), p))
	c.Next()
}

func currentPrincipal(c *gin.Context) (middleware.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return middleware.Principal{}, false
	}
	p, ok := val.(middleware.Principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (middleware.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return middleware.Principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return middleware.Principal{}, false
	}
	return p, true
}
