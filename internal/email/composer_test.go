package email

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supportflow/support-agent/internal/agent"
)

func TestComposeResolutionIsDeterministic(t *testing.T) {
	c := NewComposer("")

	st := agent.NewTicketState("my order broke")
	st.HasOrderID = true
	st.OrderID = "ORD12345"
	st.ActionTaken = "Resend item"
	st.Reason = "Replacement shipped under the damaged item policy"

	first := c.ComposeResolution(st)
	second := c.ComposeResolution(st)

	assert.Equal(t, first, second)
	assert.Contains(t, first, "ORD12345")
	assert.Contains(t, first, "Resend item")
	assert.Contains(t, first, "Customer Support Team")
}

func TestComposeResolutionPrefersResolverDraft(t *testing.T) {
	c := NewComposer("")

	st := agent.NewTicketState("my order broke")
	st.ActionTaken = "Refund issued"
	st.EmailReply = "We have refunded your order in full."

	out := c.ComposeResolution(st)
	assert.Contains(t, out, "We have refunded your order in full.")
	assert.NotContains(t, out, "Resolution:")
}

func TestComposeResolutionWithoutOrder(t *testing.T) {
	c := NewComposer("")

	st := agent.NewTicketState("hello")
	st.ActionTaken = "Refund issued"

	out := c.ComposeResolution(st)
	assert.Contains(t, out, "recent order")
	assert.NotContains(t, out, "ORD")
}

func TestComposeInquiryIncludesPolicies(t *testing.T) {
	c := NewComposer("")

	st := agent.NewTicketState("what is your refund policy?")
	_ = st.SetReasoning("query_issue", "general policy question")

	out := c.ComposeInquiry(st, "Support policies:\n- Refunds within 30 days\n")
	assert.Contains(t, out, "Refunds within 30 days")
	assert.Contains(t, out, "general policy question")
}

func TestCustomSignature(t *testing.T) {
	c := NewComposer("Cheers,\nThe Robots")

	st := agent.NewTicketState("hi")
	st.ActionTaken = "Policy Info"

	assert.Contains(t, c.ComposeResolution(st), "The Robots")
}
