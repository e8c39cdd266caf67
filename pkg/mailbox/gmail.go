package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUser = "me"

// GmailClient fetches and sends mail through the Gmail API. It implements
// both Fetcher and Sender. The client value owns its service handle; there is
// no package-level state.
type GmailClient struct {
	srv *gmail.Service
}

// NewGmailClient creates a Gmail client from an OAuth config and token.
func NewGmailClient(ctx context.Context, oauthConfig *oauth2.Config, token *oauth2.Token) (*GmailClient, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	httpClient := oauthConfig.Client(ctx, token)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailClient{srv: srv}, nil
}

// NewGmailClientFromService wraps an existing service (used in tests).
func NewGmailClientFromService(srv *gmail.Service) *GmailClient {
	return &GmailClient{srv: srv}
}

// ListNewMessages fetches messages matching the filter, normalized into the
// canonical record.
func (c *GmailClient) ListNewMessages(ctx context.Context, filter ListFilter) ([]Message, error) {
	query := buildQuery(filter)

	call := c.srv.Users.Messages.List(gmailUser).Q(query).Context(ctx)
	if filter.MaxResults > 0 {
		call = call.MaxResults(filter.MaxResults)
	}

	list, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := c.srv.Users.Messages.Get(gmailUser, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("fetching message %s: %w", ref.Id, err)
		}
		messages = append(messages, parseGmailMessage(full))
	}

	return messages, nil
}

// buildQuery converts the filter into a Gmail search query.
func buildQuery(filter ListFilter) string {
	parts := []string{"in:inbox", "-in:draft"}
	if filter.Lookback > 0 {
		days := int(filter.Lookback.Hours() / 24)
		if days < 1 {
			days = 1
		}
		parts = append(parts, fmt.Sprintf("newer_than:%dd", days))
	}
	if filter.To != "" {
		parts = append(parts, "to:"+filter.To)
	}
	return strings.Join(parts, " ")
}

// parseGmailMessage extracts headers and the plain-text body.
func parseGmailMessage(msg *gmail.Message) Message {
	out := Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
	}

	if msg.Payload == nil {
		return out
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			out.From = header.Value
		case "Subject":
			out.Subject = header.Value
		case "Date":
			out.Date = header.Value
		}
	}
	if out.Date == "" && msg.InternalDate > 0 {
		out.Date = time.UnixMilli(msg.InternalDate).Format(time.RFC3339)
	}

	out.Body = plainTextBody(msg.Payload)
	if out.Body == "" {
		out.Body = msg.Snippet
	}

	return out
}

// plainTextBody walks the MIME tree for the first text/plain part.
func plainTextBody(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}

// Send composes an RFC 822 reply and sends it threaded to the original
// conversation.
func (c *GmailClient) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	raw := composeRaw(req)

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw)),
		ThreadId: req.ThreadID,
	}

	sent, err := c.srv.Users.Messages.Send(gmailUser, msg).Context(ctx).Do()
	if err != nil {
		return &SendResult{Success: false, Error: err.Error()}, nil
	}

	return &SendResult{Success: true, MessageID: sent.Id}, nil
}

// composeRaw builds the RFC 822 wire form of a reply.
func composeRaw(req SendRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", req.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", req.Subject)
	if req.InReplyTo != "" {
		fmt.Fprintf(&b, "In-Reply-To: %s\r\n", req.InReplyTo)
		fmt.Fprintf(&b, "References: %s\r\n", req.InReplyTo)
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(req.Body)
	return b.String()
}

var (
	_ Fetcher = (*GmailClient)(nil)
	_ Sender  = (*GmailClient)(nil)
)
