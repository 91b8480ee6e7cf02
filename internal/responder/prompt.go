package responder

import (
	"fmt"
	"strings"

	"call-receptionist/internal/sessions"
	"call-receptionist/internal/tenants"
)

// SystemPrompt tells the model who it answers for and the reply rules.
func SystemPrompt(t tenants.Tenant) string {
	name := strings.TrimSpace(t.BusinessName)
	if name == "" {
		name = "this business"
	}
	faq := strings.TrimSpace(t.FAQ)
	if faq == "" {
		faq = "(no business information provided)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the phone receptionist for %s.\n", name)
	b.WriteString("Rules:\n")
	b.WriteString("- Reply in at most two short sentences suitable for speech.\n")
	b.WriteString("- Only state facts found in the business information below. Do not guess prices, hours or availability.\n")
	b.WriteString("- If you are unsure, ask one clarifying question or offer to take a message.\n")
	b.WriteString("- Never say or imply that you are automated, a bot, or an AI.\n")
	b.WriteString("- Only say goodbye when the caller is finished.\n")
	b.WriteString("\nBusiness information:\n")
	b.WriteString(faq)
	return b.String()
}

// UserPrompt renders the recent turns followed by the new utterance.
func UserPrompt(recent []sessions.Turn, utterance string) string {
	var b strings.Builder
	if len(recent) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, t := range recent {
			fmt.Fprintf(&b, "Caller: %s\nReceptionist: %s\n", t.Caller, t.Assistant)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Caller: %s\nReceptionist:", strings.TrimSpace(utterance))
	return b.String()
}
