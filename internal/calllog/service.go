package calllog

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Repository is the persistence contract for call log entries.
// It is append-only: there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	// List returns entries newest first.
	List(ctx context.Context, q Query) ([]Entry, error)
}

// Service validates and normalizes entries before they are stored.
// Transcript text comes from speech recognition and is rendered in the
// operator dashboard, so markup is stripped on the way in.
type Service struct {
	repo   Repository
	clock  func() time.Time
	policy *bluemonday.Policy
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now, policy: bluemonday.StrictPolicy()}
}

var (
	ErrInvalidEntry = errors.New("calllog: invalid entry")
	errNoRepo       = errors.New("calllog: repository not configured")
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
	maxTextLen       = 2000
)

func (s *Service) Append(ctx context.Context, e Entry) (Entry, error) {
	if s.repo == nil {
		return Entry{}, errNoRepo
	}
	if strings.TrimSpace(e.CallID) == "" || e.Stage == "" {
		return Entry{}, ErrInvalidEntry
	}
	e.Utterance = s.clean(e.Utterance)
	e.Reply = s.clean(e.Reply)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

func (s *Service) List(ctx context.Context, q Query) ([]Entry, error) {
	if s.repo == nil {
		return nil, errNoRepo
	}
	if q.TenantID == "" {
		return nil, ErrInvalidEntry
	}
	q.Limit = clampLimit(q.Limit)
	return s.repo.List(ctx, q)
}

// displayText restores the characters the sanitizer escapes that cannot form
// markup. < and > stay escaped.
var displayText = strings.NewReplacer("&amp;", "&", "&#34;", `"`, "&#39;", "'")

// clean strips markup but keeps plain text readable ("3 & 4" stays "3 & 4").
// Entity-encoded markup ("&lt;b&gt;") is decoded before sanitizing so it is
// stripped like literal tags.
func (s *Service) clean(text string) string {
	for i := 0; i < 3; i++ {
		decoded := html.UnescapeString(text)
		if decoded == text {
			break
		}
		text = decoded
	}
	text = displayText.Replace(s.policy.Sanitize(text))
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > maxTextLen {
		text = string(r[:maxTextLen])
	}
	return text
}

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
