package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"call-receptionist/internal/calllog"
	"call-receptionist/internal/messages"
	"call-receptionist/internal/rbac"
	"call-receptionist/internal/reporting"
	"call-receptionist/pkg/logger"
)

type CallLogReader interface {
	List(ctx context.Context, q calllog.Query) ([]calllog.Entry, error)
}

type MessageReader interface {
	List(ctx context.Context, q messages.Query) ([]messages.Message, error)
}

type SummaryReporter interface {
	Summary(ctx context.Context, req reporting.SummaryRequest) (reporting.Summary, error)
}

// Handlers groups the operator read API for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
// Every handler expects rbac.RequireTenant earlier in the chain.
type Handlers struct {
	CallLog  CallLogReader
	Messages MessageReader
	Reports  SummaryReporter
	Now      func() time.Time
}

const defaultSummaryWindow = 7 * 24 * time.Hour

// ListCalls returns recent call log entries, newest first.
func (h Handlers) ListCalls(c *gin.Context) {
	if h.CallLog == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log not configured"})
		return
	}
	q, ok := h.readRange(c)
	if !ok {
		return
	}
	limit, ok := readLimit(c)
	if !ok {
		return
	}

	entries, err := h.CallLog.List(c.Request.Context(), calllog.Query{
		TenantID: rbac.ScopedTenant(c), From: q.From, To: q.To, Limit: limit,
	})
	if err != nil {
		logger.FromGin(c).Error("list calls failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call log lookup failed"})
		return
	}
	if entries == nil {
		entries = []calllog.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"calls": entries})
}

// ListMessages returns recent captured messages, newest first.
func (h Handlers) ListMessages(c *gin.Context) {
	if h.Messages == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "messages not configured"})
		return
	}
	q, ok := h.readRange(c)
	if !ok {
		return
	}
	limit, ok := readLimit(c)
	if !ok {
		return
	}

	msgs, err := h.Messages.List(c.Request.Context(), messages.Query{
		TenantID: rbac.ScopedTenant(c), From: q.From, To: q.To, Limit: limit,
	})
	if err != nil {
		logger.FromGin(c).Error("list messages failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "message lookup failed"})
		return
	}
	if msgs == nil {
		msgs = []messages.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Summary aggregates a tenant's call activity. Without from/to it covers
// the last seven days.
func (h Handlers) Summary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reporting not configured"})
		return
	}
	r, ok := h.readRange(c)
	if !ok {
		return
	}
	if r.To.IsZero() {
		r.To = h.now()
	}
	if r.From.IsZero() {
		r.From = r.To.Add(-defaultSummaryWindow)
	}

	out, err := h.Reports.Summary(c.Request.Context(), reporting.SummaryRequest{TenantID: rbac.ScopedTenant(c), Range: r})
	if err != nil {
		if errors.Is(err, reporting.ErrInvalidRequest) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid range"})
			return
		}
		logger.FromGin(c).Error("summary failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "summary failed"})
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

// readRange parses optional RFC 3339 from/to query parameters.
func (h Handlers) readRange(c *gin.Context) (reporting.TimeRange, bool) {
	var r reporting.TimeRange
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &r.From}, {"to", &r.To}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": p.name + " must be RFC 3339"})
			return reporting.TimeRange{}, false
		}
		*p.dst = t.UTC()
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.To.After(r.From) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be after from"})
		return reporting.TimeRange{}, false
	}
	return r, true
}

func readLimit(c *gin.Context) (int, bool) {
	v := c.Query("limit")
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	if n > 100 {
		n = 100
	}
	return n, true
}

// RequireTenantAndAnyRole bundles the tenant scope and role checks.
func RequireTenantAndAnyRole(roles ...string) []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireTenant(), rbac.RequireAnyRole(roles...)}
}
