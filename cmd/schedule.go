package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	rcron "github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/pkg/logging"
	"github.com/otherjamesbrown/triage-cli/pkg/pipeline"
	"github.com/otherjamesbrown/triage-cli/pkg/replies"
)

// ScheduleCommandDeps holds the dependencies for the schedule command.
type ScheduleCommandDeps struct {
	LoadConfig   func() (*config.Config, error)
	BuildRuntime func(ctx context.Context, cfg *config.Config, inputFile string, withMetrics bool) (*Runtime, error)
}

// DefaultScheduleDeps returns the default dependencies for production use.
func DefaultScheduleDeps() *ScheduleCommandDeps {
	return &ScheduleCommandDeps{
		LoadConfig:   config.LoadConfig,
		BuildRuntime: buildRuntime,
	}
}

// Schedule command flags.
var (
	scheduleSpec        string
	scheduleMetricsAddr string
)

// NewScheduleCommand creates the 'schedule' command: unattended recurring
// runs on a cron schedule.
func NewScheduleCommand(deps *ScheduleCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultScheduleDeps()
	}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run triage passes on a cron schedule",
		Long: `Run the triage pipeline repeatedly on a cron schedule, fully unattended.

Because nobody is present to review drafts, interactive approval is not
allowed here: replies dispatch only under the threshold policy, or not at
all. Overlapping runs are skipped, not queued.

A Prometheus endpoint serves run metrics at /metrics.

Examples:
  # Every morning at 7am, report only
  triage schedule --cron "0 7 * * *"

  # Every 4 hours with threshold-approved replies
  TRIAGE_REPLIES_ENABLED=true TRIAGE_REPLY_MODE=threshold \
    triage schedule --cron "0 */4 * * *"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(cmd.Context(), deps)
		},
	}

	cmd.Flags().StringVar(&scheduleSpec, "cron", "0 7 * * *", "cron schedule expression")
	cmd.Flags().StringVar(&scheduleMetricsAddr, "metrics-addr", ":9290", "listen address for the /metrics endpoint")

	return cmd
}

func runSchedule(ctx context.Context, deps *ScheduleCommandDeps) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return err
	}

	// Unattended runs must not block on a prompt.
	if cfg.Replies.Enabled && cfg.Replies.Mode != replies.ModeThreshold {
		return fmt.Errorf("scheduled runs require reply mode %q (got %q); disable replies or switch modes",
			replies.ModeThreshold, cfg.Replies.Mode)
	}

	rt, err := deps.BuildRuntime(ctx, cfg, "", true)
	if err != nil {
		return err
	}
	defer rt.Close()

	repliesEnabled := cfg.Replies.Enabled && rt.Sender != nil
	workflow := replies.NewWorkflow(replies.WorkflowConfig{
		Mode:       replies.ModeThreshold,
		Threshold:  cfg.Replies.Threshold,
		MaxReplies: cfg.Replies.MaxPerRun,
		DryRun:     cfg.Replies.DryRun,
	}, nil, os.Stderr, rt.Logger)

	p := pipeline.New(rt.pipelineDeps(workflow, pipeline.NopListener{}))

	// Metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: scheduleMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rt.Logger.Warn("Metrics endpoint failed", logging.Err(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	var running sync.Mutex
	runOnce := func() {
		if !running.TryLock() {
			rt.Logger.Warn("Previous run still in progress, skipping this tick")
			return
		}
		defer running.Unlock()

		_, err := p.Run(ctx, pipeline.Options{
			Filter:         rt.listFilter(),
			ProviderName:   rt.Provider.Name(),
			RepliesEnabled: repliesEnabled,
		})
		if err != nil {
			rt.Logger.Error("Scheduled run failed", logging.Err(err))
		}
	}

	c := rcron.New()
	if _, err := c.AddFunc(scheduleSpec, runOnce); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", scheduleSpec, err)
	}
	c.Start()
	rt.Logger.Info("Scheduler started",
		logging.F("cron", scheduleSpec),
		logging.F("metrics_addr", scheduleMetricsAddr),
		logging.F("replies_enabled", repliesEnabled))

	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	rt.Logger.Info("Scheduler stopped")
	return nil
}
