package replies

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
	"github.com/otherjamesbrown/triage-cli/pkg/logging"
)

// Mode selects the approval policy.
type Mode string

const (
	// ModeInteractive prompts for an individual decision per candidate.
	// There is intentionally no approve-all action: unattended bulk
	// approval of drafted outbound mail is the riskiest failure mode in
	// this system, so each send gets an explicit decision.
	ModeInteractive Mode = "interactive"

	// ModeAuto approves every candidate without prompting, up to the cap.
	ModeAuto Mode = "auto"

	// ModeThreshold approves candidates whose confidence meets the
	// configured threshold, with no prompting. Used for scheduled runs.
	ModeThreshold Mode = "threshold"
)

// ValidModes lists the accepted approval modes for config validation.
var ValidModes = []Mode{ModeInteractive, ModeAuto, ModeThreshold}

// WorkflowConfig controls the approval workflow.
type WorkflowConfig struct {
	Mode Mode

	// Threshold is the minimum confidence for ModeThreshold approval.
	Threshold float64

	// MaxReplies caps how many candidates may reach approved in one run,
	// regardless of mode. Zero or negative means no cap.
	MaxReplies int

	// DryRun previews decisions without marking anything approved for
	// dispatch.
	DryRun bool
}

// ReviewSummary is the outcome of one approval pass.
type ReviewSummary struct {
	// Approved lists candidates cleared for dispatch, in decision order.
	Approved []*Candidate
	Skipped  int

	// WouldApprove counts the candidates a dry run would have approved.
	WouldApprove int
	DryRun       bool
}

// Workflow applies an approval policy to reply candidates.
type Workflow struct {
	cfg    WorkflowConfig
	in     io.Reader
	out    io.Writer
	logger logging.Logger
}

// NewWorkflow creates an approval workflow. in/out are only read/written in
// interactive mode; pass os.Stdin/os.Stdout from the CLI.
func NewWorkflow(cfg WorkflowConfig, in io.Reader, out io.Writer, logger logging.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if out == nil {
		out = io.Discard
	}
	return &Workflow{cfg: cfg, in: in, out: out, logger: logger}
}

// InteractiveAvailable reports whether stdin is a terminal, i.e. whether
// interactive mode can actually prompt.
func InteractiveAvailable() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Review finalizes a decision for each candidate according to the configured
// mode. In interactive mode a quit action stops the review early and returns
// an error wrapping ErrQuit; decisions made before the quit are preserved but
// the caller must not dispatch.
func (w *Workflow) Review(candidates []*Candidate) (*ReviewSummary, error) {
	var summary *ReviewSummary
	var err error

	switch w.cfg.Mode {
	case ModeAuto:
		summary = w.reviewAuto(candidates)
	case ModeThreshold:
		summary = w.reviewThreshold(candidates)
	case ModeInteractive:
		summary, err = w.reviewInteractive(candidates)
	default:
		return nil, fmt.Errorf("unknown approval mode %q: %w", w.cfg.Mode, triageerrors.ErrValidation)
	}

	if w.cfg.DryRun && summary != nil {
		w.previewAndReset(summary)
	}
	return summary, err
}

func (w *Workflow) capReached(approved int) bool {
	return w.cfg.MaxReplies > 0 && approved >= w.cfg.MaxReplies
}

func (w *Workflow) reviewAuto(candidates []*Candidate) *ReviewSummary {
	summary := &ReviewSummary{}
	for _, c := range candidates {
		if w.capReached(len(summary.Approved)) {
			c.Decision = DecisionSkipped
			summary.Skipped++
			continue
		}
		c.Decision = DecisionApproved
		summary.Approved = append(summary.Approved, c)
	}
	return summary
}

func (w *Workflow) reviewThreshold(candidates []*Candidate) *ReviewSummary {
	summary := &ReviewSummary{}
	for _, c := range candidates {
		if w.capReached(len(summary.Approved)) ||
			c.Confidence == nil || *c.Confidence < w.cfg.Threshold {
			c.Decision = DecisionSkipped
			summary.Skipped++
			continue
		}
		c.Decision = DecisionApproved
		summary.Approved = append(summary.Approved, c)
	}
	return summary
}

func (w *Workflow) reviewInteractive(candidates []*Candidate) (*ReviewSummary, error) {
	summary := &ReviewSummary{}
	scanner := bufio.NewScanner(w.in)
	skipAll := false

	for i, c := range candidates {
		if skipAll || w.capReached(len(summary.Approved)) {
			c.Decision = DecisionSkipped
			summary.Skipped++
			continue
		}

		w.printCandidate(i+1, len(candidates), c)

	prompt:
		for {
			fmt.Fprint(w.out, "[a]pprove / [e]dit / [s]kip / [S]kip all / [q]uit > ")
			if !scanner.Scan() {
				// Input closed mid-review: treat as quit.
				return summary, fmt.Errorf("approval input closed: %w", triageerrors.ErrQuit)
			}
			choice := strings.TrimSpace(scanner.Text())

			switch choice {
			case "a", "A", "y":
				c.Decision = DecisionApproved
				summary.Approved = append(summary.Approved, c)
				break prompt
			case "e", "E":
				edited := w.readEdit(scanner)
				if edited == "" {
					fmt.Fprintln(w.out, "Empty edit, keeping the original draft.")
					c.Decision = DecisionApproved
				} else {
					c.Decision = DecisionEdited
					c.EditedReply = edited
				}
				summary.Approved = append(summary.Approved, c)
				break prompt
			case "s":
				c.Decision = DecisionSkipped
				summary.Skipped++
				break prompt
			case "S":
				c.Decision = DecisionSkipped
				summary.Skipped++
				skipAll = true
				break prompt
			case "q", "Q":
				return summary, fmt.Errorf("review aborted by operator: %w", triageerrors.ErrQuit)
			default:
				fmt.Fprintln(w.out, "Unrecognized choice.")
			}
		}
	}

	return summary, nil
}

func (w *Workflow) printCandidate(n, total int, c *Candidate) {
	fmt.Fprintf(w.out, "\n--- Reply %d of %d ---\n", n, total)
	fmt.Fprintf(w.out, "To:      %s\n", c.Source.From)
	fmt.Fprintf(w.out, "Subject: %s\n", c.Source.Subject)
	if c.Confidence != nil {
		fmt.Fprintf(w.out, "Confidence: %.2f\n", *c.Confidence)
	}
	if c.Reason != "" {
		fmt.Fprintf(w.out, "Reason:  %s\n", c.Reason)
	}
	fmt.Fprintf(w.out, "\n%s\n\n", c.Suggested)
}

// readEdit collects a replacement draft, terminated by a line containing only
// a single period.
func (w *Workflow) readEdit(scanner *bufio.Scanner) string {
	fmt.Fprintln(w.out, "Enter replacement reply, finish with a single '.' on its own line:")
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// previewAndReset renders the would-be decisions and returns every candidate
// to pending so nothing reaches dispatch.
func (w *Workflow) previewAndReset(summary *ReviewSummary) {
	summary.DryRun = true
	summary.WouldApprove = len(summary.Approved)

	fmt.Fprintf(w.out, "\nDry run: %d repl%s would be sent, %d skipped.\n",
		summary.WouldApprove, pluralSuffix(summary.WouldApprove), summary.Skipped)
	for _, c := range summary.Approved {
		fmt.Fprintf(w.out, "  would send to %s: %s\n", c.Source.From, firstLine(c.FinalReply()))
		c.Decision = DecisionPending
		c.EditedReply = ""
	}
	summary.Approved = nil
}

func pluralSuffix(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
