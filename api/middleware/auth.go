// Package middleware carries the cross-cutting request filters: bearer
// authentication, request logging, and rate limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/connexus-ai/knowledge-agent/pkg/domain"
)

// UserKey is the gin context key the authenticated identity is stored under.
const UserKey = "authenticated_user"

// Auth extracts the caller's identity from the bearer token. The token's
// signature is validated upstream by the identity provider gateway; here the
// claims are decoded to identify the user, and the raw token is kept so
// downstream calls run under the caller's own permissions.
func Auth() gin.HandlerFunc {
	parser := jwt.NewParser()

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"statusCode": http.StatusUnauthorized,
				"message":    "missing bearer token",
				"error":      "Unauthorized",
			})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"statusCode": http.StatusUnauthorized,
				"message":    "malformed bearer token",
				"error":      "Unauthorized",
			})
			return
		}

		user := domain.UserIdentity{
			ID:    claimString(claims, "oid", "sub"),
			Name:  claimString(claims, "name"),
			Email: claimString(claims, "preferred_username", "email", "upn"),
			Token: raw,
		}
		if user.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"statusCode": http.StatusUnauthorized,
				"message":    "token carries no subject",
				"error":      "Unauthorized",
			})
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// UserFrom retrieves the identity stored by Auth.
func UserFrom(c *gin.Context) (domain.UserIdentity, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return domain.UserIdentity{}, false
	}
	user, ok := v.(domain.UserIdentity)
	return user, ok
}

func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
