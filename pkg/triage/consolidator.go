package triage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otherjamesbrown/triage-cli/pkg/genai"
	"github.com/otherjamesbrown/triage-cli/pkg/logging"
)

// DefaultChunkSize bounds how many items go into one consolidation call.
// Request/response token limits fail unpredictably above a certain item
// count, so pre-emptive chunking trades a little cross-chunk categorization
// consistency for run reliability.
const DefaultChunkSize = 15

// chunkSeparator joins chunk outputs in the final analysis text.
const chunkSeparator = "\n\n---\n\n"

// Consolidation is the output of the batched categorization pass.
type Consolidation struct {
	// AnalysisText is the concatenated categorized report body.
	AnalysisText string

	// Model is the model that produced the text (last successful chunk).
	Model string

	// Chunks is the number of generation calls issued.
	Chunks int

	// FailedChunks counts chunks whose generation call failed; their items
	// are preserved in the text uncategorized.
	FailedChunks int
}

// Consolidator runs the batched categorization pass: one generation call per
// size-bounded chunk, outputs concatenated in order.
type Consolidator struct {
	provider  genai.Provider
	chunkSize int
	timeout   time.Duration
	logger    logging.Logger
}

// NewConsolidator creates a consolidator. chunkSize <= 0 uses
// DefaultChunkSize.
func NewConsolidator(provider genai.Provider, chunkSize int, timeout time.Duration, logger logging.Logger) *Consolidator {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Consolidator{provider: provider, chunkSize: chunkSize, timeout: timeout, logger: logger}
}

// Consolidate categorizes all triage results (relevant and general alike)
// into one report body. Chunk failures are recovered locally: the chunk's
// items are listed raw so every item still appears in the report.
func (c *Consolidator) Consolidate(ctx context.Context, results []Result) *Consolidation {
	if len(results) == 0 {
		return &Consolidation{}
	}

	out := &Consolidation{}
	var sections []string

	for start := 0; start < len(results); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(results) {
			end = len(results)
		}
		chunk := results[start:end]
		out.Chunks++

		resp, err := c.provider.Complete(ctx, genai.Request{
			Prompt:  consolidationPrompt(chunk),
			Timeout: c.timeout,
		})
		if err != nil {
			c.logger.Warn("Consolidation chunk failed, preserving items uncategorized",
				logging.Err(err),
				logging.F("chunk_start", start),
				logging.F("chunk_items", len(chunk)))
			out.FailedChunks++
			sections = append(sections, fallbackSection(chunk))
			continue
		}

		out.Model = resp.Model
		sections = append(sections, strings.TrimSpace(resp.Text))
	}

	out.AnalysisText = strings.Join(sections, chunkSeparator)
	return out
}

// fallbackSection renders a chunk whose generation call failed so its items
// are still represented in the report.
func fallbackSection(chunk []Result) string {
	var b strings.Builder
	b.WriteString("### Uncategorized (analysis unavailable for this batch)\n")
	for _, item := range chunk {
		summary := item.CleanedMessage
		if idx := strings.IndexByte(summary, '\n'); idx >= 0 {
			summary = summary[:idx]
		}
		fmt.Fprintf(&b, "- %s: %s\n", item.Source.From, summary)
	}
	return strings.TrimSpace(b.String())
}
