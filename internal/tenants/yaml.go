package tenants

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Tenants []yamlTenant `yaml:"tenants"`
}

type yamlTenant struct {
	ID           string        `yaml:"id"`
	DialedNumber string        `yaml:"dialed_number"`
	BusinessName string        `yaml:"business_name"`
	Greeting     string        `yaml:"greeting"`
	FAQ          string        `yaml:"faq"`
	Mode         Mode          `yaml:"mode"`
	Capture      *CaptureFlags `yaml:"capture"`
	Active       *bool         `yaml:"active"`
}

// LoadYAML decodes a tenants file. Omitted fields take the directory
// defaults: mode message, default capture flags, active.
//
//	tenants:
//	  - id: acme
//	    dialed_number: "+1 555 010 0000"
//	    business_name: Acme Plumbing
//	    mode: message
func LoadYAML(r io.Reader) ([]Tenant, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f yamlFile
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding tenants yaml: %w", err)
	}

	out := make([]Tenant, 0, len(f.Tenants))
	seen := map[string]string{}
	for i, yt := range f.Tenants {
		t := Tenant{
			ID:           strings.TrimSpace(yt.ID),
			DialedNumber: NormalizeNumber(yt.DialedNumber),
			BusinessName: strings.TrimSpace(yt.BusinessName),
			Greeting:     strings.TrimSpace(yt.Greeting),
			FAQ:          strings.TrimSpace(yt.FAQ),
			Mode:         yt.Mode,
			Capture:      DefaultCaptureFlags(),
			Active:       true,
		}
		if t.Mode == "" {
			t.Mode = ModeMessage
		}
		if yt.Capture != nil {
			t.Capture = *yt.Capture
		}
		if yt.Active != nil {
			t.Active = *yt.Active
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("tenant #%d (%s): %w", i+1, yt.ID, err)
		}
		if other, ok := seen[t.DialedNumber]; ok {
			return nil, fmt.Errorf("tenant %s: dialed number %s already used by %s", t.ID, t.DialedNumber, other)
		}
		seen[t.DialedNumber] = t.ID
		out = append(out, t)
	}
	return out, nil
}
