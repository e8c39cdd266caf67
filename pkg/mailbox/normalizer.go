package mailbox

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// Fragment length floors for the splitting strategies. Fragments shorter than
// these are separator debris, not messages.
const (
	minSeparatorFragment = 20
	minParagraphFragment = 100
	minBulletFragment    = 30
)

var (
	separatorPattern  = regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|={3,})[ \t]*$`)
	fromBoundary      = regexp.MustCompile(`(?m)^From:`)
	blankLinePattern  = regexp.MustCompile(`\n[ \t]*\n`)
	bulletPattern     = regexp.MustCompile(`(?m)^[ \t]*(?:[-*\x{2022}]|\d+[.)])[ \t]+`)
	senderLinePattern = regexp.MustCompile(`(?im)^(?:From|Sender)[ \t]*:[ \t]*(.+)$`)
	titleLinePattern  = regexp.MustCompile(`(?im)^(?:Subject|Title)[ \t]*:[ \t]*(.+)$`)
	dateLinePattern   = regexp.MustCompile(`(?im)^Date[ \t]*:[ \t]*(.+)$`)
	headerLineStrip   = regexp.MustCompile(`(?im)^(?:From|Sender|Subject|Title|Date)[ \t]*:[ \t]*.*$`)
	blankRunPattern   = regexp.MustCompile(`\n{3,}`)
)

// Normalizer turns a raw text blob, possibly containing multiple delimited
// sub-items, into canonical Messages.
type Normalizer struct{}

// NewNormalizer creates a Normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// SplitBlob splits a raw blob into messages. Splitting strategies are tried
// in order and the first that yields more than one usable fragment wins:
// explicit separators (---, ===, From: boundaries), blank-line paragraphs,
// bullet/numbered-list markers. A blob nothing matches becomes a single
// message; a whitespace-only blob yields an empty list.
func (n *Normalizer) SplitBlob(blob string) []Message {
	if strings.TrimSpace(blob) == "" {
		return []Message{}
	}

	if frags := splitOnSeparators(blob); len(frags) > 1 {
		return n.toMessages(frags)
	}
	if frags := splitOnParagraphs(blob); len(frags) > 1 {
		return n.toMessages(frags)
	}
	if frags := splitOnBullets(blob); len(frags) > 1 {
		return n.toMessages(frags)
	}

	return n.toMessages([]string{blob})
}

// splitOnSeparators splits on ---/=== separator lines and before From: lines.
func splitOnSeparators(blob string) []string {
	var frags []string
	for _, part := range separatorPattern.Split(blob, -1) {
		frags = append(frags, splitBeforeFrom(part)...)
	}
	return keepLonger(frags, minSeparatorFragment)
}

// splitBeforeFrom cuts a fragment before each From: line past the start.
func splitBeforeFrom(part string) []string {
	locs := fromBoundary.FindAllStringIndex(part, -1)
	if len(locs) == 0 {
		return []string{part}
	}

	var cuts []int
	for _, loc := range locs {
		if strings.TrimSpace(part[:loc[0]]) != "" {
			cuts = append(cuts, loc[0])
		}
	}
	if len(cuts) == 0 {
		return []string{part}
	}

	var out []string
	prev := 0
	for _, cut := range cuts {
		out = append(out, part[prev:cut])
		prev = cut
	}
	out = append(out, part[prev:])
	return out
}

func splitOnParagraphs(blob string) []string {
	return keepLonger(blankLinePattern.Split(blob, -1), minParagraphFragment)
}

func splitOnBullets(blob string) []string {
	return keepLonger(bulletPattern.Split(blob, -1), minBulletFragment)
}

// keepLonger trims fragments and keeps those longer than min characters.
func keepLonger(frags []string, min int) []string {
	var out []string
	for _, f := range frags {
		f = strings.TrimSpace(f)
		if len(f) > min {
			out = append(out, f)
		}
	}
	return out
}

// toMessages extracts headers and cleans bodies for each fragment, dropping
// fragments whose cleaned body is empty.
func (n *Normalizer) toMessages(frags []string) []Message {
	msgs := make([]Message, 0, len(frags))
	for _, frag := range frags {
		msg := extractMessage(frag)
		if msg.Body == "" {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// extractMessage pulls sender/subject/date from labeled lines and cleans the
// remaining text into the body.
func extractMessage(frag string) Message {
	msg := Message{ID: contentID(frag)}

	if m := senderLinePattern.FindStringSubmatch(frag); len(m) == 2 {
		msg.From = strings.TrimSpace(m[1])
	}
	if m := titleLinePattern.FindStringSubmatch(frag); len(m) == 2 {
		msg.Subject = strings.TrimSpace(m[1])
	}
	if m := dateLinePattern.FindStringSubmatch(frag); len(m) == 2 {
		msg.Date = strings.TrimSpace(m[1])
	}

	body := headerLineStrip.ReplaceAllString(frag, "")
	body = blankRunPattern.ReplaceAllString(body, "\n\n")
	body = strings.TrimSpace(body)

	if msg.Subject == "" {
		if first, rest, ok := firstLineSubject(body); ok {
			msg.Subject = first
			body = rest
		}
	}

	msg.Body = body
	return msg
}

// firstLineSubject uses the first line as the subject when it looks like a
// title (between 10 and 100 characters).
func firstLineSubject(body string) (subject, rest string, ok bool) {
	idx := strings.IndexByte(body, '\n')
	if idx < 0 {
		return "", body, false
	}
	first := strings.TrimSpace(body[:idx])
	if len(first) < 10 || len(first) > 100 {
		return "", body, false
	}
	return first, strings.TrimSpace(body[idx+1:]), true
}

// CleanAll normalizes already-separate messages: collapse whitespace runs in
// the body and drop messages whose body is empty. Items dropped here never
// reach the triage stage.
func (n *Normalizer) CleanAll(items []Message) []Message {
	out := make([]Message, 0, len(items))
	for _, item := range items {
		item.Body = strings.TrimSpace(blankRunPattern.ReplaceAllString(item.Body, "\n\n"))
		if item.Body == "" {
			continue
		}
		if item.ID == "" {
			item.ID = contentID(item.From + item.Subject + item.Body)
		}
		out = append(out, item)
	}
	return out
}

// contentID derives a stable identifier from content.
func contentID(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "item-" + hex.EncodeToString(sum[:6])
}
