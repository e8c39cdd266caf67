package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// WriterNotifier renders the report to an io.Writer, usually stdout. It is
// the default channel so a run with no configured notifiers still shows its
// report.
type WriterNotifier struct {
	out io.Writer
}

// NewWriterNotifier creates a writer-backed notifier.
func NewWriterNotifier(out io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out}
}

func (w *WriterNotifier) Name() string { return "stdout" }

func (w *WriterNotifier) Notify(_ context.Context, report *triage.Report) error {
	var b strings.Builder

	b.WriteString("==============================\n")
	fmt.Fprintf(&b, "Triage Report — %s\n", report.Timestamp)
	b.WriteString("==============================\n")
	fmt.Fprintf(&b, "Total items:    %d\n", report.Summary.TotalItems)
	fmt.Fprintf(&b, "Relevant items: %d\n", report.Summary.RelevantItems)
	fmt.Fprintf(&b, "General items:  %d\n", report.Summary.GeneralItems)
	if len(report.Summary.Categories) > 0 {
		fmt.Fprintf(&b, "Categories:     %s\n", strings.Join(report.Summary.Categories, ", "))
	}
	for _, insight := range report.Summary.KeyInsights {
		fmt.Fprintf(&b, "  - %s\n", insight)
	}
	if report.Metadata.Provider != "" {
		fmt.Fprintf(&b, "Provider:       %s", report.Metadata.Provider)
		if report.Metadata.Model != "" {
			fmt.Fprintf(&b, " (%s)", report.Metadata.Model)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(report.AnalysisText)
	b.WriteString("\n")

	_, err := io.WriteString(w.out, b.String())
	return err
}
