package rbac

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"call-receptionist/internal/auth"
)

const (
	// TenantQueryParam lets super_admin read another tenant's data.
	TenantQueryParam = "tenant_id"

	ctxScopedTenant = "scoped_tenant_id"
)

// RequireTenant enforces tenant isolation: tenant_id must exist in context.
// The effective tenant for the request is the token's tenant, except that
// super_admin may override it with ?tenant_id=.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		tid, err := auth.TenantID(c.Request.Context())
		if err != nil || tid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
			return
		}
		scoped := tid
		if role, _ := auth.Role(c.Request.Context()); IsSuperAdmin(role) {
			if q := strings.TrimSpace(c.Query(TenantQueryParam)); q != "" {
				scoped = q
			}
		}
		c.Set(ctxScopedTenant, scoped)
		c.Next()
	}
}

// ScopedTenant returns the tenant chosen by RequireTenant.
func ScopedTenant(c *gin.Context) string {
	return c.GetString(ctxScopedTenant)
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// super_admin bypasses the check; unknown roles are always denied.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if IsSuperAdmin(role) {
			c.Next()
			return
		}
		if _, ok := allowedSet[role]; !ok || !IsKnownRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
