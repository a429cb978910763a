// Package email renders the customer-facing reply from final ticket state.
// Composition is deterministic: the same state always yields the same email.
package email

import (
	"fmt"
	"strings"

	"github.com/supportflow/support-agent/internal/agent"
)

// Composer implements workflow.Composer with plain-text templates.
type Composer struct {
	signature string
}

// NewComposer creates a composer. An empty signature falls back to the
// default support sign-off.
func NewComposer(signature string) *Composer {
	if signature == "" {
		signature = "Best regards,\nCustomer Support Team"
	}
	return &Composer{signature: signature}
}

// ComposeResolution renders the reply for a resolved issue. A draft body
// left by the resolver wins over the template.
func (c *Composer) ComposeResolution(st *agent.TicketState) string {
	if st.EmailReply != "" {
		return c.signOff(st.EmailReply)
	}

	var b strings.Builder
	b.WriteString("Hello,\n\n")
	b.WriteString("Thank you for contacting us about your ")
	if st.HasOrderID {
		fmt.Fprintf(&b, "order %s.\n\n", st.OrderID)
	} else {
		b.WriteString("recent order.\n\n")
	}

	if st.ActionTaken != "" {
		fmt.Fprintf(&b, "Resolution: %s.\n", st.ActionTaken)
	}
	if st.Reason != "" {
		fmt.Fprintf(&b, "%s\n", st.Reason)
	}
	b.WriteString("\nIf there is anything else we can help with, just reply to this email.\n")

	return c.signOff(b.String())
}

// ComposeInquiry renders the reply for a policy/product question using the
// policy catalog.
func (c *Composer) ComposeInquiry(st *agent.TicketState, policiesContext string) string {
	var b strings.Builder
	b.WriteString("Hello,\n\n")
	b.WriteString("Thank you for your question. Here is the relevant information:\n\n")
	if policiesContext != "" {
		b.WriteString(policiesContext)
		b.WriteString("\n")
	}
	if reason := st.ReasoningFor("query_issue"); reason != "" {
		fmt.Fprintf(&b, "Regarding your message: %s\n\n", reason)
	}
	b.WriteString("If this does not answer your question, just reply and we will take another look.\n")

	return c.signOff(b.String())
}

func (c *Composer) signOff(body string) string {
	body = strings.TrimRight(body, "\n")
	return fmt.Sprintf("%s\n\n%s\n", body, c.signature)
}
