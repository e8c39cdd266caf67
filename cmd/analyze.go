package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/pkg/pipeline"
)

// AnalyzeCommandDeps holds the dependencies for the analyze command.
type AnalyzeCommandDeps struct {
	LoadConfig   func() (*config.Config, error)
	BuildRuntime func(ctx context.Context, cfg *config.Config, inputFile string, withMetrics bool) (*Runtime, error)
}

// DefaultAnalyzeDeps returns the default dependencies for production use.
func DefaultAnalyzeDeps() *AnalyzeCommandDeps {
	return &AnalyzeCommandDeps{
		LoadConfig:   config.LoadConfig,
		BuildRuntime: buildRuntime,
	}
}

var analyzeNoDedup bool

// NewAnalyzeCommand creates the 'analyze' command: triage a local feedback
// blob and print the report. Never dispatches replies.
func NewAnalyzeCommand(deps *AnalyzeCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultAnalyzeDeps()
	}

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Triage a local feedback file and print the report",
		Long: `Split a local text blob into individual items, classify each one, and
print the consolidated report. Nothing is sent: analyze is the offline,
read-only version of run.

The blob is split on separator lines (---, ===), message boundaries
(From: ...), paragraphs, or bullet lists, whichever fits the content.

Examples:
  triage analyze feedback.txt
  triage analyze inbox-dump.txt --no-dedup`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), deps, args[0])
		},
	}

	cmd.Flags().BoolVar(&analyzeNoDedup, "no-dedup", false, "triage every item even if seen in an earlier run")

	return cmd
}

func runAnalyze(ctx context.Context, deps *AnalyzeCommandDeps, path string) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}

	rt, err := deps.BuildRuntime(ctx, cfg, path, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	pdeps := rt.pipelineDeps(nil, pipeline.NewWriterListener(os.Stderr))
	if analyzeNoDedup {
		pdeps.Store = nopStore{}
	}

	result, err := pipeline.New(pdeps).Run(ctx, pipeline.Options{
		Filter:       rt.listFilter(),
		ProviderName: rt.Provider.Name(),
	})
	if err != nil {
		return err
	}

	if result.Processed == 0 && result.Fetched > 0 {
		fmt.Fprintln(os.Stderr, "All items were already processed; use --no-dedup to re-triage them.")
	}
	return nil
}

// nopStore disables dedup for one-off analyses.
type nopStore struct{}

func (nopStore) Load(context.Context) (map[string]struct{}, error) { return map[string]struct{}{}, nil }
func (nopStore) Save(context.Context, map[string]struct{}) error   { return nil }
