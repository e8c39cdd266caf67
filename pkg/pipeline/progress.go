package pipeline

import (
	"fmt"
	"io"

	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// ProgressListener receives run lifecycle events, in order: RunStarted, then
// ItemProcessed per item, then ConsolidationDone, then exactly one of
// RunCompleted or RunFailed.
type ProgressListener interface {
	RunStarted(runID string, items int)
	ItemProcessed(index, total int, result triage.Result)
	ConsolidationDone(chunks, failedChunks int)
	RunCompleted(result *RunResult)
	RunFailed(err error)
}

// NopListener discards all events.
type NopListener struct{}

func (NopListener) RunStarted(string, int)              {}
func (NopListener) ItemProcessed(int, int, triage.Result) {}
func (NopListener) ConsolidationDone(int, int)          {}
func (NopListener) RunCompleted(*RunResult)             {}
func (NopListener) RunFailed(error)                     {}

// WriterListener renders run progress to a writer, for CLI output.
type WriterListener struct {
	out io.Writer
}

// NewWriterListener creates a listener writing to out.
func NewWriterListener(out io.Writer) *WriterListener {
	return &WriterListener{out: out}
}

func (l *WriterListener) RunStarted(runID string, items int) {
	fmt.Fprintf(l.out, "Run %s: %d new items to process\n", runID, items)
}

func (l *WriterListener) ItemProcessed(index, total int, result triage.Result) {
	tag := "general"
	if result.IsRelevant {
		tag = "relevant"
	}
	if result.IsReplyable {
		tag += ", reply drafted"
	}
	fmt.Fprintf(l.out, "  [%d/%d] %s — %s\n", index, total, result.Source.From, tag)
}

func (l *WriterListener) ConsolidationDone(chunks, failedChunks int) {
	if failedChunks > 0 {
		fmt.Fprintf(l.out, "Consolidated %d chunk(s), %d failed (items preserved uncategorized)\n",
			chunks, failedChunks)
		return
	}
	if chunks > 0 {
		fmt.Fprintf(l.out, "Consolidated %d chunk(s)\n", chunks)
	}
}

func (l *WriterListener) RunCompleted(result *RunResult) {
	fmt.Fprintf(l.out, "Done: %d processed, %d relevant", result.Processed, result.RelevantItems)
	if result.RepliesSent+result.RepliesFailed > 0 {
		fmt.Fprintf(l.out, ", %d replies sent, %d failed", result.RepliesSent, result.RepliesFailed)
	}
	fmt.Fprintf(l.out, " (%.1fs)\n", result.Duration.Seconds())
}

func (l *WriterListener) RunFailed(err error) {
	fmt.Fprintf(l.out, "Run failed: %v\n", err)
}
