// Package triage implements the two-stage analysis at the heart of the
// pipeline: a per-item classification pass (relevance, replyability, draft
// reply) and a batched consolidation pass that produces one categorized
// report across all items.
package triage

import (
	"github.com/otherjamesbrown/triage-cli/pkg/mailbox"
)

// Result is the outcome of classifying a single item.
//
// IsReplyable implies SuggestedReply is non-empty. When the generation
// service's output fails to parse or omits the relevance field, the result
// falls back to not-relevant/not-replyable with CleanedMessage set to the
// original body; classification failures never abort a run.
type Result struct {
	IsRelevant      bool
	IsReplyable     bool
	CleanedMessage  string
	SuggestedReply  string
	ReplyReason     string
	ReplyConfidence *float64
	Source          mailbox.Message

	// Degraded marks a result produced by the safe-default fallback
	// rather than a parsed classification.
	Degraded bool
}

// Category names for the consolidation taxonomy. Fixed: the consolidation
// prompt instructs the model to file every item under one of these.
const (
	CategoryTechnical = "Technical Issues"
	CategoryFeature   = "Feature & Implementation Requests"
	CategoryBilling   = "Service & Billing Changes"
	CategoryMeeting   = "Meeting & Scheduling Requests"
	CategoryGeneral   = "General Inquiries"
)

// Taxonomy lists all categories in report order.
var Taxonomy = []string{
	CategoryTechnical,
	CategoryFeature,
	CategoryBilling,
	CategoryMeeting,
	CategoryGeneral,
}
