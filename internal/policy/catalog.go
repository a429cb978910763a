// Package policy holds the fixed support policy catalog and the fuzzy
// matcher that maps identified problems to an applicable policy.
package policy

import (
	"fmt"
	"strings"
)

// Policy is one catalog entry. The catalog is fixed at startup; tickets
// never add or edit policies.
type Policy struct {
	Name               string
	Description        string
	WhenToUse          string
	ApplicableProblems []string
}

// DefaultCatalog returns the built-in policy set, used when the database
// has no seeded policies.
func DefaultCatalog() []Policy {
	return []Policy{
		{
			Name:        "Damaged or Defective Item Policy",
			Description: "Customers who receive a damaged or defective item get a free replacement when the product is in stock, or a full refund when it is not.",
			WhenToUse:   "The customer reports a product that arrived broken, damaged in transit, or stopped working.",
			ApplicableProblems: []string{
				"damaged", "defective",
			},
		},
		{
			Name:        "Missing Item Policy",
			Description: "Orders missing an item get the missing item resent when in stock, or a refund for the missing portion when it is not.",
			WhenToUse:   "The customer reports that an item from their order never arrived or the package was incomplete.",
			ApplicableProblems: []string{
				"missing",
			},
		},
		{
			Name:        "Wrong Item Shipped Policy",
			Description: "Customers who receive the wrong item get the correct item resent at no charge; the wrong item does not need to be returned.",
			WhenToUse:   "The customer received a different product than the one they ordered.",
			ApplicableProblems: []string{
				"wrong-item",
			},
		},
		{
			Name:        "Late Delivery Policy",
			Description: "Orders delayed beyond the promised window get an apology and shipping refunded; orders delayed over ten days may be fully refunded on request.",
			WhenToUse:   "The customer complains their order has not arrived by the expected date.",
			ApplicableProblems: []string{
				"late-delivery",
			},
		},
	}
}

// FormatContext renders the catalog as plain text for LLM prompts and
// inquiry replies.
func FormatContext(catalog []Policy) string {
	var b strings.Builder
	b.WriteString("Support policies:\n")
	for _, p := range catalog {
		fmt.Fprintf(&b, "- %s: %s When to use: %s\n", p.Name, p.Description, p.WhenToUse)
	}
	return b.String()
}
