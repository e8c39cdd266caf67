package triage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/triage-cli/pkg/genai"
	"github.com/otherjamesbrown/triage-cli/pkg/mailbox"
)

// stubProvider returns canned responses in order, or a fixed error.
type stubProvider struct {
	mu        sync.Mutex
	responses []string
	err       error
	requests  []genai.Request
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req genai.Request) (*genai.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	text := ""
	if len(s.responses) > 0 {
		text = s.responses[0]
		if len(s.responses) > 1 {
			s.responses = s.responses[1:]
		}
	}
	return &genai.Response{Text: text, Model: "stub-model"}, nil
}

func (s *stubProvider) Close() error { return nil }

func (s *stubProvider) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func testItem() mailbox.Message {
	return mailbox.Message{
		ID:      "item-abc123",
		From:    "alice@customer.example",
		Subject: "Login broken",
		Date:    "2026-08-20",
		Body:    "I cannot log in since the update. Please fix.",
	}
}

func TestClassifyReplyableItem(t *testing.T) {
	provider := &stubProvider{responses: []string{`{
		"is_relevant": true,
		"is_replyable": true,
		"cleaned_message": "Cannot log in since the update.",
		"suggested_reply": "Hi Alice, thanks for the report. We are investigating the login failure and will follow up today. Best, Support",
		"reply_reason": "Direct bug report from a customer expecting acknowledgement.",
		"reply_confidence": 0.9
	}`}}

	c := NewClassifier(provider, 0, nil)
	result := c.Classify(context.Background(), testItem())

	assert.True(t, result.IsRelevant)
	assert.True(t, result.IsReplyable)
	assert.Equal(t, "Cannot log in since the update.", result.CleanedMessage)
	assert.NotEmpty(t, result.SuggestedReply)
	require.NotNil(t, result.ReplyConfidence)
	assert.InDelta(t, 0.9, *result.ReplyConfidence, 0.001)
	assert.Equal(t, "item-abc123", result.Source.ID)
}

func TestClassifyProviderErrorFallsBack(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream timeout")}

	c := NewClassifier(provider, 0, nil)
	item := testItem()
	result := c.Classify(context.Background(), item)

	assert.False(t, result.IsRelevant)
	assert.False(t, result.IsReplyable)
	assert.Equal(t, item.Body, result.CleanedMessage)
	assert.Empty(t, result.SuggestedReply)
}

func TestClassifyUnparseableOutputFallsBack(t *testing.T) {
	provider := &stubProvider{responses: []string{"Sorry, I can't help with that."}}

	c := NewClassifier(provider, 0, nil)
	item := testItem()
	result := c.Classify(context.Background(), item)

	assert.False(t, result.IsRelevant)
	assert.False(t, result.IsReplyable)
	assert.Equal(t, item.Body, result.CleanedMessage)
}

func TestClassifyMissingRelevanceFieldFallsBack(t *testing.T) {
	provider := &stubProvider{responses: []string{`{"is_replyable": true, "suggested_reply": "hi"}`}}

	c := NewClassifier(provider, 0, nil)
	result := c.Classify(context.Background(), testItem())

	assert.False(t, result.IsRelevant)
	assert.False(t, result.IsReplyable)
}

func TestClassifyNoReplySenderOverride(t *testing.T) {
	// The model says replyable; the sender address must win.
	provider := &stubProvider{responses: []string{`{
		"is_relevant": true,
		"is_replyable": true,
		"cleaned_message": "Your invoice is ready.",
		"suggested_reply": "Thanks for the invoice!",
		"reply_reason": "",
		"reply_confidence": 0.8
	}`}}

	item := testItem()
	item.From = "notifications@billing.example"

	c := NewClassifier(provider, 0, nil)
	result := c.Classify(context.Background(), item)

	assert.True(t, result.IsRelevant)
	assert.False(t, result.IsReplyable)
	assert.Empty(t, result.SuggestedReply, "non-replyable items carry no draft")
}

func TestClassifyReplyableWithoutDraftDemoted(t *testing.T) {
	provider := &stubProvider{responses: []string{`{
		"is_relevant": true,
		"is_replyable": true,
		"cleaned_message": "Please advise.",
		"suggested_reply": "",
		"reply_reason": "needs answer",
		"reply_confidence": 0.7
	}`}}

	c := NewClassifier(provider, 0, nil)
	result := c.Classify(context.Background(), testItem())

	assert.False(t, result.IsReplyable)
	assert.Empty(t, result.SuggestedReply)
}

func TestClassifyEmptyCleanedMessageUsesOriginalBody(t *testing.T) {
	provider := &stubProvider{responses: []string{`{
		"is_relevant": true,
		"is_replyable": false,
		"cleaned_message": "",
		"suggested_reply": "",
		"reply_reason": "",
		"reply_confidence": null
	}`}}

	c := NewClassifier(provider, 0, nil)
	item := testItem()
	result := c.Classify(context.Background(), item)

	assert.Equal(t, item.Body, result.CleanedMessage)
	assert.Nil(t, result.ReplyConfidence)
}

func TestIsNoReplySender(t *testing.T) {
	tests := []struct {
		from string
		want bool
	}{
		{"noreply@service.example", true},
		{"No-Reply@Service.Example", true},
		{"donotreply@corp.example", true},
		{"notifications@github.example", true},
		{"automated@deploys.example", true},
		{"mailer@lists.example", true},
		{"postmaster@mx.example", true},
		{"alice@customer.example", false},
		{"bob.noreplyson@people.example", true}, // substring match, accepted tradeoff
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNoReplySender(tt.from), "from=%s", tt.from)
	}
}

var _ genai.Provider = (*stubProvider)(nil)

func TestClassifyFallbackIsMarkedDegraded(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
	}{
		{"provider error", &stubProvider{err: errors.New("service down")}},
		{"unparseable output", &stubProvider{responses: []string{"sorry, I cannot help"}}},
		{"missing relevance field", &stubProvider{responses: []string{`{"is_replyable": false}`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.provider, 0, nil)
			result := c.Classify(context.Background(), testItem())
			assert.True(t, result.Degraded)
		})
	}
}

func TestClassifySuccessIsNotDegraded(t *testing.T) {
	provider := &stubProvider{responses: []string{`{
		"is_relevant": true,
		"is_replyable": false,
		"cleaned_message": "Login is broken."
	}`}}
	c := NewClassifier(provider, 0, nil)

	result := c.Classify(context.Background(), testItem())

	assert.False(t, result.Degraded)
	assert.True(t, result.IsRelevant)
}
