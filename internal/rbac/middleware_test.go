package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"call-receptionist/internal/auth"
)

func withIdentity(tenantID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "u", tenantID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func serve(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestRequireAnyRole_SuperAdminBypasses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", withIdentity("t", RoleSuperAdmin), RequireTenant(), RequireAnyRole(RoleOwner), func(c *gin.Context) {
		c.Status(200)
	})

	if w := serve(r, "/x"); w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAnyRole_StaffDeniedOwnerRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", withIdentity("t", RoleStaff), RequireTenant(), RequireAnyRole(RoleOwner), func(c *gin.Context) {
		c.Status(200)
	})

	if w := serve(r, "/x"); w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAnyRole_UnknownRoleDenied(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", withIdentity("t", "agent"), RequireTenant(), RequireAnyRole("agent"), func(c *gin.Context) {
		c.Status(200)
	})

	if w := serve(r, "/x"); w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireTenant_Required(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", withIdentity("", RoleOwner), RequireTenant(), RequireAnyRole(RoleOwner), func(c *gin.Context) {
		c.Status(200)
	})

	if w := serve(r, "/x"); w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireTenant_OnlySuperAdminOverrides(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, tc := range []struct {
		role string
		want string
	}{
		{RoleOwner, "own"},
		{RoleSuperAdmin, "other"},
	} {
		r := gin.New()
		r.GET("/x", withIdentity("own", tc.role), RequireTenant(), func(c *gin.Context) {
			c.String(200, ScopedTenant(c))
		})
		if w := serve(r, "/x?tenant_id=other"); w.Body.String() != tc.want {
			t.Fatalf("role %s: expected scoped tenant %q, got %q", tc.role, tc.want, w.Body.String())
		}
	}
}
