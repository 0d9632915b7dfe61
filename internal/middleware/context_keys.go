package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// userIDKey is the key used to store the authenticated user's ID.
const userIDKey = contextKey("userID")

// organizationIDKey is the key used to store the authenticated user's organization.
const organizationIDKey = contextKey("organizationID")

// roleKey is the key used to store the authenticated user's role.
const roleKey = contextKey("role")

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	v := c.Request.Context().Value(userIDKey)
	if v == nil {
		return "", false
	}
	userID, ok := v.(string)
	return userID, ok
}

// GetOrganizationIDFromContext retrieves the authenticated organization ID from
// the Gin context. Identity resolution happens upstream; every engine endpoint
// only trusts what the auth middleware put here.
func GetOrganizationIDFromContext(c *gin.Context) (string, bool) {
	v := c.Request.Context().Value(organizationIDKey)
	if v == nil {
		return "", false
	}
	orgID, ok := v.(string)
	return orgID, ok
}

// GetRoleFromContext retrieves the authenticated user's role from the Gin context.
func GetRoleFromContext(c *gin.Context) (string, bool) {
	v := c.Request.Context().Value(roleKey)
	if v == nil {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// RequireAdmin rejects callers whose token does not carry the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRoleFromContext(c)
		if !ok || role != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin role required"})
			return
		}
		c.Next()
	}
}
