// Package mailbox provides message normalization and the mail transports
// (Gmail, local files) consumed by the triage pipeline.
package mailbox

import (
	"context"
	"time"
)

// Message is the canonical record every source is normalized into.
type Message struct {
	// ID is stable and unique per source (Gmail message id, or a content
	// hash for file-provided items).
	ID string `json:"id"`

	// From is the sender address or label.
	From string `json:"from"`

	// Subject is the message subject, possibly derived from the first line.
	Subject string `json:"subject"`

	// Date is the source-native date string (RFC 3339 when we generate it).
	Date string `json:"date"`

	// Body is plain text, cleaned of header lines and collapsed whitespace.
	Body string `json:"body"`

	// ThreadID is the conversation identifier for threaded replies. Empty
	// for sources that have no thread concept.
	ThreadID string `json:"thread_id"`
}

// ListFilter bounds a fetch. MaxResults exists specifically to bound token
// usage downstream; the pipeline never processes more items per run.
type ListFilter struct {
	// Lookback restricts the fetch to messages newer than this window.
	Lookback time.Duration

	// To restricts the fetch to messages addressed to this address.
	To string

	// MaxResults caps the number of messages returned.
	MaxResults int64
}

// Fetcher lists new messages from a mail source.
type Fetcher interface {
	ListNewMessages(ctx context.Context, filter ListFilter) ([]Message, error)
}

// SendRequest describes an outbound reply.
type SendRequest struct {
	To        string
	Subject   string
	Body      string
	ThreadID  string
	InReplyTo string
}

// SendResult reports the outcome of a single send.
type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// Sender delivers composed replies.
type Sender interface {
	Send(ctx context.Context, req SendRequest) (*SendResult, error)
}
