package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/partnerhub/core/internal/pkg/jwt"
	"github.com/partnerhub/core/internal/pkg/response"
)

const ContextKeySubject = "subject"

// AdminAuth requires a valid bearer token carrying the admin role.
func AdminAuth(keys *jwt.Keyring) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := NormalizeToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c)
			return
		}
		claims, err := keys.Parse(token)
		if err != nil {
			response.Unauthorized(c)
			return
		}
		if claims.Role != jwt.RoleAdmin {
			response.Forbidden(c)
			return
		}
		c.Set(ContextKeySubject, claims.Subject)
		c.Next()
	}
}

// CurrentSubject returns the authenticated admin subject, if any.
func CurrentSubject(c *gin.Context) string {
	v, _ := c.Get(ContextKeySubject)
	s, _ := v.(string)
	return s
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) >= 7 && strings.EqualFold(token[:7], "bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}
