package mailbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBlob_ExplicitSeparators(t *testing.T) {
	blob := "From: a@x.com\nSubject: Bug\n\nLogin fails.\n---\nFrom: b@y.com\nSubject: Newsletter\n\nBuy now!"

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 2)

	assert.Equal(t, "a@x.com", msgs[0].From)
	assert.Equal(t, "Bug", msgs[0].Subject)
	assert.Equal(t, "Login fails.", msgs[0].Body)

	assert.Equal(t, "b@y.com", msgs[1].From)
	assert.Equal(t, "Newsletter", msgs[1].Subject)
	assert.Equal(t, "Buy now!", msgs[1].Body)
}

func TestSplitBlob_EqualsSeparator(t *testing.T) {
	blob := "Sender: ops@corp.io\nTitle: Server restart request\n\nPlease restart app-03 tonight.\n===\nFrom: dev@corp.io\n\nThe deploy pipeline is stuck on stage two again."

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 2)
	assert.Equal(t, "ops@corp.io", msgs[0].From)
	assert.Equal(t, "Server restart request", msgs[0].Subject)
}

func TestSplitBlob_FromBoundaryWithoutSeparator(t *testing.T) {
	blob := "From: first@x.com\nSubject: Billing question\n\nWhy was I charged twice this month?\nFrom: second@y.com\nSubject: Meeting\n\nCan we talk Thursday afternoon about the rollout?"

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first@x.com", msgs[0].From)
	assert.Equal(t, "second@y.com", msgs[1].From)
}

func TestSplitBlob_Paragraphs(t *testing.T) {
	para1 := "The export feature has been broken for three days now and our finance team cannot close the quarter without it, please treat this as urgent."
	para2 := "Separately, we would love an option to schedule exports to run automatically every Monday morning before the team gets in."
	blob := para1 + "\n\n" + para2

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Body, "export feature has been broken")
	assert.Contains(t, msgs[1].Body, "schedule exports")
}

func TestSplitBlob_ParagraphsTooShortStayWhole(t *testing.T) {
	// Both paragraphs are under the 100-char floor, so paragraph splitting
	// is trivial and the blob falls through to a single item.
	blob := "Short first paragraph here.\n\nAnother short paragraph follows."

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 1)
}

func TestSplitBlob_Bullets(t *testing.T) {
	blob := "- The login page throws a 500 error when using SSO accounts\n- Please add export to CSV for the audit report screen\n- Billing shows the old plan name after the upgrade"

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 3)
}

func TestSplitBlob_FallbackSingleItem(t *testing.T) {
	blob := "Just one short note about the service."

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 1)
	assert.Equal(t, blob, msgs[0].Body)
}

func TestSplitBlob_WhitespaceOnly(t *testing.T) {
	msgs := NewNormalizer().SplitBlob("   \n\n\t  \n")
	assert.Empty(t, msgs)
}

func TestSplitBlob_FirstLineSubjectFallback(t *testing.T) {
	blob := "Checkout keeps timing out\nEvery attempt since Monday fails at the payment step and customers are emailing us about it, so this is costing real orders."

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Checkout keeps timing out", msgs[0].Subject)
	assert.NotContains(t, msgs[0].Body, "Checkout keeps timing out")
}

func TestSplitBlob_ShortFirstLineNotSubject(t *testing.T) {
	blob := "Hi there\nThe dashboard loads fine but every chart is blank since the update you shipped yesterday afternoon."

	msgs := NewNormalizer().SplitBlob(blob)
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].Subject)
}

func TestSplitBlob_StableIDs(t *testing.T) {
	blob := "From: a@x.com\n\nA message body that is long enough to keep."

	first := NewNormalizer().SplitBlob(blob)
	second := NewNormalizer().SplitBlob(blob)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEmpty(t, first[0].ID)
}

func TestCleanAll_DropsEmptyBodies(t *testing.T) {
	items := []Message{
		{ID: "a", Body: "keep me"},
		{ID: "b", Body: "   \n\n  "},
		{ID: "c", Body: "also kept\n\n\n\nwith collapsed gaps"},
	}

	out := NewNormalizer().CleanAll(items)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "also kept\n\nwith collapsed gaps", out[1].Body)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedback.txt")
	content := "From: a@x.com\nSubject: Bug\n\nLogin fails.\n---\nFrom: b@y.com\nSubject: Newsletter\n\nBuy now!"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	msgs, err := NewFileSource(path).ListNewMessages(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.NotEmpty(t, msgs[0].Date)
}

func TestFileSource_MaxResults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feedback.txt")
	content := "From: a@x.com\n\nFirst message body, long enough.\n---\nFrom: b@y.com\n\nSecond message body, long enough.\n---\nFrom: c@z.com\n\nThird message body, long enough."
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	msgs, err := NewFileSource(path).ListNewMessages(context.Background(), ListFilter{MaxResults: 2})
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestFileSource_MissingFile(t *testing.T) {
	_, err := NewFileSource("/nonexistent/feedback.txt").ListNewMessages(context.Background(), ListFilter{})
	assert.Error(t, err)
}

func TestComposeRaw(t *testing.T) {
	raw := composeRaw(SendRequest{
		To:        "a@x.com",
		Subject:   "Re: Bug",
		Body:      "On it.",
		InReplyTo: "<msg-1@x.com>",
	})

	assert.Contains(t, raw, "To: a@x.com\r\n")
	assert.Contains(t, raw, "Subject: Re: Bug\r\n")
	assert.Contains(t, raw, "In-Reply-To: <msg-1@x.com>\r\n")
	assert.Contains(t, raw, "References: <msg-1@x.com>\r\n")
	assert.Contains(t, raw, "\r\n\r\nOn it.")
}

func TestBuildQuery(t *testing.T) {
	q := buildQuery(ListFilter{Lookback: 72 * time.Hour, To: "feedback@corp.io"})
	assert.Equal(t, "in:inbox -in:draft newer_than:3d to:feedback@corp.io", q)

	q = buildQuery(ListFilter{})
	assert.Equal(t, "in:inbox -in:draft", q)
}
