package tenants

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects how a tenant's calls are handled after the greeting.
type Mode string

const (
	// ModeMessage runs the scripted intent and capture flow.
	ModeMessage Mode = "message"
	// ModeAI hands every turn to the responder.
	ModeAI Mode = "ai"
)

func (m Mode) Valid() bool {
	return m == ModeMessage || m == ModeAI
}

// CaptureFlags controls which fields the message flow collects.
type CaptureFlags struct {
	Reason        bool `json:"reason" yaml:"reason"`
	Name          bool `json:"name" yaml:"name"`
	Callback      bool `json:"callback" yaml:"callback"`
	PreferredTime bool `json:"preferred_time" yaml:"preferred_time"`
}

// DefaultCaptureFlags collects reason, name and callback number.
func DefaultCaptureFlags() CaptureFlags {
	return CaptureFlags{Reason: true, Name: true, Callback: true}
}

// DefaultGreeting is spoken when a tenant has no greeting configured.
const DefaultGreeting = "Hello. Thanks for calling. How can I help you today?"

// Tenant is a business that owns a dialed number.
type Tenant struct {
	ID           string       `json:"id"`
	DialedNumber string       `json:"dialed_number"`
	BusinessName string       `json:"business_name"`
	Greeting     string       `json:"greeting"`
	FAQ          string       `json:"faq,omitempty"`
	Mode         Mode         `json:"mode"`
	Capture      CaptureFlags `json:"capture"`
	Active       bool         `json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// GreetingOrDefault returns the configured greeting or DefaultGreeting.
func (t Tenant) GreetingOrDefault() string {
	if g := strings.TrimSpace(t.Greeting); g != "" {
		return g
	}
	return DefaultGreeting
}

// Validate checks the fields the directory relies on.
func (t Tenant) Validate() error {
	var errs []error
	if strings.TrimSpace(t.ID) == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if NormalizeNumber(t.DialedNumber) == "" {
		errs = append(errs, fmt.Errorf("dialed_number %q has no digits", t.DialedNumber))
	}
	if !t.Mode.Valid() {
		errs = append(errs, fmt.Errorf("mode must be message or ai, got %q", t.Mode))
	}
	return errors.Join(errs...)
}

// NormalizeNumber keeps digits and a single leading '+', so
// "+1 (555) 010-0000" and "+15550100000" resolve to the same tenant.
func NormalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

var (
	ErrNotFound        = errors.New("tenants: not found")
	ErrDuplicateNumber = errors.New("tenants: dialed number already assigned")
)
