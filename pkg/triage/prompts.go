package triage

import (
	"fmt"
	"strings"
)

// classificationPrompt asks the model to classify one item and, when a reply
// is warranted, to draft it ready to send.
func classificationPrompt(from, subject, date, body string) string {
	var b strings.Builder

	b.WriteString("You are triaging incoming business communications.\n\n")
	b.WriteString("Analyze the following message and respond with a single JSON object.\n\n")
	fmt.Fprintf(&b, "From: %s\n", from)
	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Date: %s\n\n", date)
	b.WriteString("Message:\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(`Respond with JSON in exactly this shape:
{
  "is_relevant": true or false,
  "is_replyable": true or false,
  "cleaned_message": "the complete message content, transcribed cleanly without signatures or quoted history",
  "suggested_reply": "a complete, ready-to-send reply (empty string if no reply is needed)",
  "reply_reason": "one short sentence on why a reply is or is not needed",
  "reply_confidence": 0.0 to 1.0
}

Rules:
- "is_relevant" is true only for genuine business communication: bug reports,
  feature requests, billing or account changes, meeting requests, or direct
  questions. Newsletters, promotions, and automated notifications are not
  relevant.
- "is_replyable" is true only when BOTH hold: the sender is a real person
  (not a no-reply or automated address) AND the message asks for action or an
  answer.
- When "is_replyable" is true, "suggested_reply" must be a complete draft:
  greeting, substance, sign-off. Do not use placeholders.
- Respond with the JSON object only.`)

	return b.String()
}

// consolidationPrompt asks the model to produce one categorized report
// section covering every item in the chunk.
func consolidationPrompt(items []Result) string {
	var b strings.Builder

	b.WriteString("You are producing a categorized feedback report.\n\n")
	fmt.Fprintf(&b, "Below are %d triaged messages. Produce a markdown report section that covers EVERY message, filed under these categories:\n\n", len(items))
	for _, cat := range Taxonomy {
		fmt.Fprintf(&b, "- %s\n", cat)
	}
	b.WriteString("\nFor each message include the sender, a one-line summary, and — where the message needs one — a short contextual suggested reply. Use a category header only when it has items. Messages tagged [general] still appear, filed under General Inquiries.\n\n")

	for i, item := range items {
		tag := "general"
		if item.IsRelevant {
			tag = "relevant"
		}
		fmt.Fprintf(&b, "Message %d [%s] from %s:\n%s\n\n", i+1, tag, item.Source.From, item.CleanedMessage)
	}

	b.WriteString("Report section:")
	return b.String()
}
