package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/pkg/pipeline"
	"github.com/otherjamesbrown/triage-cli/pkg/replies"
)

// RunCommandDeps holds the dependencies for the run command.
type RunCommandDeps struct {
	LoadConfig   func() (*config.Config, error)
	BuildRuntime func(ctx context.Context, cfg *config.Config, inputFile string, withMetrics bool) (*Runtime, error)
}

// DefaultRunDeps returns the default dependencies for production use.
func DefaultRunDeps() *RunCommandDeps {
	return &RunCommandDeps{
		LoadConfig:   config.LoadConfig,
		BuildRuntime: buildRuntime,
	}
}

// Run command flags.
var (
	runReplies    bool
	runMode       string
	runThreshold  float64
	runMaxReplies int
	runDryRun     bool
	runLookback   time.Duration
	runTarget     string
	runInput      string
)

// NewRunCommand creates the 'run' command: one full fetch → triage → report
// → reply pass.
func NewRunCommand(deps *RunCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultRunDeps()
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one triage pass over new mail",
		Long: `Fetch new items, classify each one, produce a categorized report, and
optionally dispatch drafted replies under the configured approval policy.

Items already processed in earlier runs are skipped; the run records its
item ids once it completes, so an interrupted run retries them.

Examples:
  # Report only (replies stay off unless configured or flagged)
  triage run

  # Review and send replies interactively
  triage run --replies

  # Unattended: auto-approve drafts above a confidence bar, at most 3 sends
  triage run --replies --mode threshold --threshold 0.85 --max-replies 3

  # Preview what would be sent, without sending
  triage run --replies --dry-run

  # Triage a local feedback blob instead of the mailbox
  triage run --input feedback.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd.Context(), deps, cmd)
		},
	}

	cmd.Flags().BoolVar(&runReplies, "replies", false, "enable the reply approval and dispatch stages")
	cmd.Flags().StringVar(&runMode, "mode", "", "approval mode: interactive, auto, or threshold")
	cmd.Flags().Float64Var(&runThreshold, "threshold", 0, "minimum confidence for threshold-mode approval")
	cmd.Flags().IntVar(&runMaxReplies, "max-replies", 0, "cap on replies sent in one run")
	cmd.Flags().BoolVar(&runDryRun, "dry-run", false, "preview reply decisions without sending")
	cmd.Flags().DurationVar(&runLookback, "lookback", 0, "how far back to fetch (e.g. 48h)")
	cmd.Flags().StringVar(&runTarget, "target", "", "only fetch mail addressed to this address")
	cmd.Flags().StringVar(&runInput, "input", "", "triage a local text file instead of the mailbox")

	return cmd
}

// applyRunFlags overlays command-line flags onto the loaded config.
func applyRunFlags(cfg *config.Config, cmd *cobra.Command) {
	if runReplies {
		cfg.Replies.Enabled = true
	}
	if cmd.Flags().Changed("mode") {
		cfg.Replies.Mode = replies.Mode(runMode)
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Replies.Threshold = runThreshold
	}
	if cmd.Flags().Changed("max-replies") {
		cfg.Replies.MaxPerRun = runMaxReplies
	}
	if runDryRun {
		cfg.Replies.DryRun = true
	}
	if runLookback > 0 {
		cfg.Mailbox.Lookback = runLookback
	}
	if runTarget != "" {
		cfg.Mailbox.Target = runTarget
	}
}

func runRun(ctx context.Context, deps *RunCommandDeps, cmd *cobra.Command) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg, cmd)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Replies.Enabled && cfg.Replies.Mode == replies.ModeInteractive && !replies.InteractiveAvailable() {
		return fmt.Errorf("interactive approval needs a terminal; use --mode auto or --mode threshold")
	}

	rt, err := deps.BuildRuntime(ctx, cfg, runInput, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	repliesEnabled := cfg.Replies.Enabled
	if repliesEnabled && rt.Sender == nil {
		rt.Logger.Warn("No outbound transport for this source, replies disabled")
		repliesEnabled = false
	}

	workflow := replies.NewWorkflow(replies.WorkflowConfig{
		Mode:       cfg.Replies.Mode,
		Threshold:  cfg.Replies.Threshold,
		MaxReplies: cfg.Replies.MaxPerRun,
		DryRun:     cfg.Replies.DryRun,
	}, os.Stdin, os.Stdout, rt.Logger)

	p := pipeline.New(rt.pipelineDeps(workflow, pipeline.NewWriterListener(os.Stderr)))
	result, err := p.Run(ctx, pipeline.Options{
		Filter:         rt.listFilter(),
		ProviderName:   rt.Provider.Name(),
		RepliesEnabled: repliesEnabled,
	})
	if err != nil {
		return err
	}

	if result.QuitRequested {
		fmt.Fprintln(os.Stderr, "Review quit; no replies were sent.")
	}
	return nil
}
