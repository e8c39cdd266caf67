package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/pkg/archive"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// runHistory is the slice of the archive the runs commands need.
type runHistory interface {
	ListRuns(ctx context.Context, limit int) ([]archive.RunSummary, error)
	GetReport(ctx context.Context, runID string) (*triage.Report, error)
}

// RunsCommandDeps holds the dependencies for the runs commands.
type RunsCommandDeps struct {
	LoadConfig  func() (*config.Config, error)
	OpenArchive func(ctx context.Context, cfg *config.Config) (runHistory, func(), error)
}

// DefaultRunsDeps returns the default dependencies for production use.
func DefaultRunsDeps() *RunsCommandDeps {
	return &RunsCommandDeps{
		LoadConfig:  config.LoadConfig,
		OpenArchive: openArchiveFromConfig,
	}
}

func openArchiveFromConfig(ctx context.Context, cfg *config.Config) (runHistory, func(), error) {
	if cfg.Archive.DSN == "" {
		return nil, nil, fmt.Errorf("no run archive configured: set archive.dsn or TRIAGE_ARCHIVE_DSN")
	}
	repo, err := archive.Connect(ctx, cfg.Archive.DSN, newLogger(cfg))
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}

var (
	runsLimit  int
	runsOutput string
)

// NewRunsCommand creates the 'runs' command group for browsing the run
// archive.
func NewRunsCommand(deps *RunsCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultRunsDeps()
	}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse archived runs",
		Long: `Browse runs recorded in the Postgres run archive.

Requires archive.dsn in the config (or TRIAGE_ARCHIVE_DSN). Runs are
archived automatically whenever the archive is configured.

Examples:
  triage runs
  triage runs --limit 50
  triage runs show 4f8b2c1a-... --output yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(cmd, deps)
		},
	}
	cmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum number of runs to list")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the archived report for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, deps, args[0])
		},
	}
	show.Flags().StringVar(&runsOutput, "output", "yaml", "output format: yaml or json")
	cmd.AddCommand(show)

	return cmd
}

func runRunsList(cmd *cobra.Command, deps *RunsCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	history, closer, err := deps.OpenArchive(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closer()

	runs, err := history.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No archived runs.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTATUS\tSTARTED\tITEMS\tRELEVANT\tREPLIES")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
			run.RunID, run.Status, run.StartedAt.Local().Format(time.RFC3339),
			run.TotalItems, run.RelevantItems, run.RepliesSent)
	}
	return w.Flush()
}

func runRunsShow(cmd *cobra.Command, deps *RunsCommandDeps, runID string) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}
	history, closer, err := deps.OpenArchive(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closer()

	report, err := history.GetReport(cmd.Context(), runID)
	if err != nil {
		return err
	}

	switch runsOutput {
	case "json":
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	case "yaml":
		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
	default:
		return fmt.Errorf("unknown output format %q (yaml or json)", runsOutput)
	}
	return nil
}
