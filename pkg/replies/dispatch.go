package replies

import (
	"context"
	"strings"
	"time"

	"github.com/otherjamesbrown/triage-cli/pkg/logging"
	"github.com/otherjamesbrown/triage-cli/pkg/mailbox"
)

// DefaultSendDelay paces sequential sends to stay under provider rate limits.
const DefaultSendDelay = 2 * time.Second

// Outcome records one send attempt.
type Outcome struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DispatchSummary aggregates the outcomes of one dispatch pass.
type DispatchSummary struct {
	Sent     int       `json:"sent"`
	Failed   int       `json:"failed"`
	Outcomes []Outcome `json:"outcomes"`
}

// Dispatcher sends approved replies sequentially through the outbound
// transport, with a fixed delay between sends. One failure never blocks the
// remaining sends.
type Dispatcher struct {
	sender mailbox.Sender
	delay  time.Duration
	logger logging.Logger
}

// NewDispatcher creates a dispatcher. delay < 0 uses DefaultSendDelay; zero
// disables pacing (useful in tests).
func NewDispatcher(sender mailbox.Sender, delay time.Duration, logger logging.Logger) *Dispatcher {
	if delay < 0 {
		delay = DefaultSendDelay
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Dispatcher{sender: sender, delay: delay, logger: logger}
}

// Dispatch sends every approved candidate in decision order. Candidates not
// approved for dispatch are ignored. Context cancellation stops before the
// next send; already-sent replies stay sent.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []*Candidate) *DispatchSummary {
	summary := &DispatchSummary{}

	first := true
	for _, c := range candidates {
		if !c.approvedForDispatch() {
			continue
		}

		if !first && d.delay > 0 {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
				d.logger.Warn("Dispatch cancelled, remaining replies not sent",
					logging.Err(ctx.Err()),
					logging.F("sent", summary.Sent))
				return summary
			}
		}
		first = false

		outcome := d.sendOne(ctx, c)
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Success {
			summary.Sent++
		} else {
			summary.Failed++
		}
	}

	return summary
}

func (d *Dispatcher) sendOne(ctx context.Context, c *Candidate) Outcome {
	subject := ReplySubject(c.Source.Subject)
	outcome := Outcome{To: c.Source.From, Subject: subject}

	result, err := d.sender.Send(ctx, mailbox.SendRequest{
		To:        c.Source.From,
		Subject:   subject,
		Body:      c.FinalReply(),
		ThreadID:  c.Source.ThreadID,
		InReplyTo: c.Source.ID,
	})
	if err != nil {
		outcome.Error = err.Error()
		d.logger.Error("Reply send failed", logging.Err(err), logging.F("to", c.Source.From))
		return outcome
	}
	if !result.Success {
		outcome.Error = result.Error
		d.logger.Error("Reply send rejected by transport",
			logging.F("to", c.Source.From), logging.F("error", result.Error))
		return outcome
	}

	outcome.Success = true
	outcome.MessageID = result.MessageID
	d.logger.Info("Reply sent",
		logging.F("to", c.Source.From), logging.F("message_id", result.MessageID))
	return outcome
}

// ReplySubject prefixes a subject with "Re:" unless it already carries one.
func ReplySubject(subject string) string {
	trimmed := strings.TrimSpace(subject)
	if len(trimmed) >= 3 && strings.EqualFold(trimmed[:3], "re:") {
		return trimmed
	}
	if trimmed == "" {
		return "Re: (no subject)"
	}
	return "Re: " + trimmed
}
