package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"call-receptionist/internal/auth"
	"call-receptionist/internal/calllog"
	"call-receptionist/internal/messages"
	"call-receptionist/internal/rbac"
	"call-receptionist/internal/reporting"
)

var testNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

type fixture struct {
	router *gin.Engine
	log    *calllog.Service
	sink   *messages.Sink
}

func newFixture(t *testing.T, tenantID, role string) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logRepo := calllog.NewMemoryRepo()
	msgRepo := messages.NewMemoryRepo()
	f := fixture{log: calllog.NewService(logRepo), sink: messages.NewSink(msgRepo)}

	h := Handlers{
		CallLog:  f.log,
		Messages: f.sink,
		Reports:  reporting.NewService(reporting.SourceRepo{Turns: logRepo, Messages: msgRepo}),
		Now:      func() time.Time { return testNow },
	}

	r := gin.New()
	v1 := r.Group("/v1", func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), "u", tenantID, role))
		c.Next()
	})
	v1.Use(RequireTenantAndAnyRole(rbac.RoleOwner, rbac.RoleStaff)...)
	v1.GET("/calls", h.ListCalls)
	v1.GET("/messages", h.ListMessages)
	v1.GET("/reports/summary", h.Summary)
	f.router = r
	return f
}

func (f fixture) get(t *testing.T, target string, out any) int {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return w.Code
}

func TestListCalls_TenantScopedNewestFirst(t *testing.T) {
	f := newFixture(t, "t1", rbac.RoleStaff)
	ctx := context.Background()
	for i, tenant := range []string{"t1", "t2", "t1"} {
		_, err := f.log.Append(ctx, calllog.Entry{
			CallID: "c", TenantID: tenant, Stage: "root", Utterance: string(rune('a' + i)),
			Outcome: calllog.OutcomeListen, CreatedAt: testNow.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var body struct {
		Calls []calllog.Entry `json:"calls"`
	}
	if code := f.get(t, "/v1/calls", &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(body.Calls) != 2 || body.Calls[0].Utterance != "c" || body.Calls[1].Utterance != "a" {
		t.Fatalf("unexpected calls: %+v", body.Calls)
	}
}

func TestListCalls_RejectsBadQuery(t *testing.T) {
	f := newFixture(t, "t1", rbac.RoleOwner)
	for _, target := range []string{"/v1/calls?limit=-1", "/v1/calls?from=yesterday", "/v1/calls?from=2026-03-02T00:00:00Z&to=2026-03-01T00:00:00Z"} {
		if code := f.get(t, target, nil); code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, code)
		}
	}
}

func TestListMessages(t *testing.T) {
	f := newFixture(t, "t1", rbac.RoleOwner)
	if _, err := f.sink.Capture(context.Background(), messages.Message{CallID: "c1", TenantID: "t1", Intent: "message", ReasonOrMessage: "call me"}); err != nil {
		t.Fatalf("capture: %v", err)
	}

	var body struct {
		Messages []messages.Message `json:"messages"`
	}
	if code := f.get(t, "/v1/messages?limit=10", &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(body.Messages) != 1 || body.Messages[0].ReasonOrMessage != "call me" {
		t.Fatalf("unexpected messages: %+v", body.Messages)
	}
}

func TestSummary_DefaultsToLastWeek(t *testing.T) {
	f := newFixture(t, "t1", rbac.RoleOwner)
	ctx := context.Background()
	_, _ = f.log.Append(ctx, calllog.Entry{CallID: "recent", TenantID: "t1", Stage: "root", Intent: "hours", Outcome: calllog.OutcomeListen, CreatedAt: testNow.Add(-time.Hour)})
	_, _ = f.log.Append(ctx, calllog.Entry{CallID: "stale", TenantID: "t1", Stage: "root", Intent: "hours", Outcome: calllog.OutcomeListen, CreatedAt: testNow.Add(-30 * 24 * time.Hour)})

	var out reporting.Summary
	if code := f.get(t, "/v1/reports/summary", &out); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if out.Calls != 1 || out.Intents["hours"] != 1 {
		t.Fatalf("unexpected summary: %+v", out)
	}
}

func TestSummary_UnknownRoleForbidden(t *testing.T) {
	f := newFixture(t, "t1", "guest")
	if code := f.get(t, "/v1/reports/summary", nil); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Burst: 2})
	defer rl.Stop()

	r := gin.New()
	r.GET("/x", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRateLimiter_CleanupDropsIdle(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{MaxAge: time.Minute})
	defer rl.Stop()

	now := testNow
	rl.now = func() time.Time { return now }
	rl.Allow("a")
	now = now.Add(2 * time.Minute)
	rl.Allow("b")

	if removed := rl.cleanup(); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
