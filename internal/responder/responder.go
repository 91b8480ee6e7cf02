// Package responder produces short spoken replies for AI-mode tenants.
package responder

import (
	"context"
	"errors"
	"strings"
	"time"

	"call-receptionist/internal/sessions"
	"call-receptionist/internal/tenants"
)

// FailureKind says why no utterance was produced.
type FailureKind string

const (
	FailureUnavailable FailureKind = "unavailable"
	FailureTimeout     FailureKind = "timeout"
	FailureProvider    FailureKind = "provider"
	FailureEmpty       FailureKind = "empty"
	FailurePolicy      FailureKind = "policy"
	FailureBusy        FailureKind = "busy"
)

// Result is either an Utterance or a Failure. Err carries the underlying
// cause for logs and is never spoken.
type Result struct {
	Utterance string
	Failure   FailureKind
	Err       error
}

func (r Result) OK() bool { return r.Failure == "" }

func failed(kind FailureKind, err error) Result {
	return Result{Failure: kind, Err: err}
}

// Request is everything the responder may draw on for one reply.
type Request struct {
	Tenant    tenants.Tenant
	Recent    []sessions.Turn
	Utterance string
}

// LLM is a text completion provider.
type LLM interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Limiter caps concurrent provider calls per tenant. release must be called
// once when acquired is true.
type Limiter interface {
	Acquire(ctx context.Context, tenantID string) (release func(), acquired bool, err error)
}

// Service wraps an LLM with the reply rules every AI-mode answer must meet.
type Service struct {
	llm     LLM
	limiter Limiter
	timeout time.Duration
}

type Option func(*Service)

func WithLimiter(l Limiter) Option { return func(s *Service) { s.limiter = l } }

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService accepts a nil llm; every Generate then reports FailureUnavailable.
func NewService(llm LLM, opts ...Option) *Service {
	s := &Service{llm: llm, timeout: 4 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Generate(ctx context.Context, req Request) Result {
	if s == nil || s.llm == nil {
		return failed(FailureUnavailable, errors.New("responder: no provider configured"))
	}

	if s.limiter != nil {
		release, ok, err := s.limiter.Acquire(ctx, req.Tenant.ID)
		switch {
		case err != nil:
			// Limiter outage should not take AI mode down with it.
		case !ok:
			return failed(FailureBusy, errors.New("responder: tenant concurrency cap reached"))
		default:
			defer release()
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.llm.Generate(callCtx, SystemPrompt(req.Tenant), UserPrompt(req.Recent, req.Utterance))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return failed(FailureTimeout, err)
		}
		return failed(FailureProvider, err)
	}

	text := Truncate(strings.Join(strings.Fields(raw), " "), 2)
	if text == "" {
		return failed(FailureEmpty, errors.New("responder: empty output"))
	}
	if RevealsAutomation(text) {
		return failed(FailurePolicy, errors.New("responder: reply disclosed automation"))
	}
	return Result{Utterance: text}
}

// Truncate keeps at most n sentences. A sentence ends at '.', '!' or '?'
// followed by whitespace or end of text.
func Truncate(text string, n int) string {
	text = strings.TrimSpace(text)
	if n <= 0 || text == "" {
		return ""
	}
	runes := []rune(text)
	count := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && runes[i+1] != ' ' {
			continue
		}
		count++
		if count == n {
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	return text
}

var automationPhrases = []string{
	"as an ai",
	"i am an ai",
	"i'm an ai",
	"language model",
	"artificial intelligence",
	"chatbot",
	"i am a bot",
	"i'm a bot",
	"virtual assistant",
	"automated assistant",
}

// RevealsAutomation reports whether text admits to being machine generated.
func RevealsAutomation(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range automationPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
