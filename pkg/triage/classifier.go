package triage

import (
	"context"
	"strings"
	"time"

	"github.com/otherjamesbrown/triage-cli/pkg/genai"
	"github.com/otherjamesbrown/triage-cli/pkg/logging"
	"github.com/otherjamesbrown/triage-cli/pkg/mailbox"
)

// noReplyMarkers are sender-address substrings that force replyability off.
// This is a hard override applied before and regardless of the model's
// judgment, case-insensitive.
var noReplyMarkers = []string{
	"noreply",
	"no-reply",
	"donotreply",
	"do-not-reply",
	"notifications@",
	"automated@",
	"system@",
	"mailer@",
	"daemon@",
	"postmaster@",
}

// IsNoReplySender reports whether the address matches a no-reply marker.
func IsNoReplySender(from string) bool {
	lower := strings.ToLower(from)
	for _, marker := range noReplyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Classifier runs the per-item classification stage. It performs exactly one
// generation call per item; batching happens later at consolidation.
type Classifier struct {
	provider genai.Provider
	timeout  time.Duration
	logger   logging.Logger
}

// NewClassifier creates a classifier. timeout bounds each generation call;
// zero leaves the caller's context in charge.
func NewClassifier(provider genai.Provider, timeout time.Duration, logger logging.Logger) *Classifier {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Classifier{provider: provider, timeout: timeout, logger: logger}
}

// classifierResponse mirrors the JSON the classification prompt requests.
// IsRelevant is a pointer so an omitted field is distinguishable from false.
type classifierResponse struct {
	IsRelevant      *bool    `json:"is_relevant"`
	IsReplyable     bool     `json:"is_replyable"`
	CleanedMessage  string   `json:"cleaned_message"`
	SuggestedReply  string   `json:"suggested_reply"`
	ReplyReason     string   `json:"reply_reason"`
	ReplyConfidence *float64 `json:"reply_confidence"`
}

// Classify triages one item. It never returns an error: generation failures,
// timeouts, and unparseable output all fall back to the safe default so the
// run continues to the next item.
func (c *Classifier) Classify(ctx context.Context, item mailbox.Message) Result {
	fallback := Result{
		IsRelevant:     false,
		IsReplyable:    false,
		CleanedMessage: item.Body,
		Source:         item,
		Degraded:       true,
	}

	prompt := classificationPrompt(item.From, item.Subject, item.Date, item.Body)

	resp, err := c.provider.Complete(ctx, genai.Request{
		Prompt:  prompt,
		Timeout: c.timeout,
	})
	if err != nil {
		c.logger.Warn("Classification call failed, using safe default",
			logging.Err(err), logging.F("item_id", item.ID))
		return fallback
	}

	var parsed classifierResponse
	if err := genai.ExtractJSON(resp.Text, &parsed); err != nil {
		c.logger.Warn("Classification output unparseable, using safe default",
			logging.Err(err), logging.F("item_id", item.ID))
		return fallback
	}

	if parsed.IsRelevant == nil {
		c.logger.Warn("Classification output missing relevance field, using safe default",
			logging.F("item_id", item.ID))
		return fallback
	}

	result := Result{
		IsRelevant:      *parsed.IsRelevant,
		IsReplyable:     parsed.IsReplyable,
		CleanedMessage:  strings.TrimSpace(parsed.CleanedMessage),
		SuggestedReply:  strings.TrimSpace(parsed.SuggestedReply),
		ReplyReason:     strings.TrimSpace(parsed.ReplyReason),
		ReplyConfidence: parsed.ReplyConfidence,
		Source:          item,
	}

	if result.CleanedMessage == "" {
		result.CleanedMessage = item.Body
	}

	// Hard override: no-reply senders are never replyable, whatever the
	// model said.
	if IsNoReplySender(item.From) {
		result.IsReplyable = false
	}

	// A replyable item must carry a draft.
	if result.IsReplyable && result.SuggestedReply == "" {
		result.IsReplyable = false
	}

	if !result.IsReplyable {
		result.SuggestedReply = ""
	}

	return result
}
