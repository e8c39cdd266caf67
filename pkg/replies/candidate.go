// Package replies implements the reply approval workflow and the sequential
// dispatch of approved drafts through the outbound transport.
package replies

import (
	"github.com/otherjamesbrown/triage-cli/pkg/mailbox"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// Decision is the lifecycle state of a reply candidate.
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionEdited   Decision = "edited"
	DecisionSkipped  Decision = "skipped"
)

// Candidate is a draft reply awaiting a decision. Created from replyable
// triage results, finalized exactly once by the approval workflow, terminal
// once dispatched or skipped.
type Candidate struct {
	Source      mailbox.Message
	Suggested   string
	Confidence  *float64
	Reason      string
	Decision    Decision
	EditedReply string
}

// FinalReply returns the text that would actually be sent: the operator's
// edit when one was made, the model's draft otherwise.
func (c *Candidate) FinalReply() string {
	if c.Decision == DecisionEdited && c.EditedReply != "" {
		return c.EditedReply
	}
	return c.Suggested
}

// approvedForDispatch reports whether the candidate should be sent.
func (c *Candidate) approvedForDispatch() bool {
	return c.Decision == DecisionApproved || c.Decision == DecisionEdited
}

// CandidatesFrom extracts reply candidates from triage results, preserving
// input order. Only replyable results qualify; those always carry a draft.
func CandidatesFrom(results []triage.Result) []*Candidate {
	var candidates []*Candidate
	for _, r := range results {
		if !r.IsReplyable {
			continue
		}
		candidates = append(candidates, &Candidate{
			Source:     r.Source,
			Suggested:  r.SuggestedReply,
			Confidence: r.ReplyConfidence,
			Reason:     r.ReplyReason,
			Decision:   DecisionPending,
		})
	}
	return candidates
}
