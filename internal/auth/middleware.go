package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	apiKeyHeader = "X-API-Key"
	contextKey   = "authContext"
)

// SessionMiddleware authenticates the caller: either a Bearer session token
// or the service API key (which is treated as an admin subject). If apiKey is
// empty the key path is disabled.
func SessionMiddleware(issuer *Issuer, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if provided := c.GetHeader(apiKeyHeader); provided != "" && apiKey != "" {
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "invalid API key",
				})
				return
			}
			c.Set(contextKey, NewAuthContext("service", RoleAdmin))
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing credentials",
			})
			return
		}

		authCtx, err := issuer.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid session token",
			})
			return
		}

		c.Set(contextKey, authCtx)
		c.Next()
	}
}

// RequireRole aborts with 403 unless the authenticated caller has the role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx, ok := FromContext(c)
		if !ok || !authCtx.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "insufficient role",
			})
			return
		}
		c.Next()
	}
}

// FromContext returns the AuthContext set by SessionMiddleware.
func FromContext(c *gin.Context) (AuthContext, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return AuthContext{}, false
	}
	authCtx, ok := v.(AuthContext)
	return authCtx, ok
}
