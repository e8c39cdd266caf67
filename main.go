// Package main provides the triage CLI entry point.
// triage fetches incoming feedback, classifies it with a text-generation
// service, produces a categorized report, and optionally sends drafted
// replies under an approval policy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/triage-cli/cmd"
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Feedback triage and reply assistant",
	Long: `triage turns a noisy feedback stream into a categorized report and,
when you want it to, drafted replies you approve before anything is sent.

Each run fetches new items, classifies every one (relevance, replyability,
a cleaned transcription, and a draft reply where warranted), consolidates
them into one report, and delivers it. Items are never triaged twice.

COMMON WORKFLOWS:
  One-time setup:   triage auth  →  triage store set-key gemini
  Morning review:   triage run --replies
  Unattended:       triage schedule --cron "0 7 * * *"
  Offline analysis: triage analyze feedback.txt

Configuration lives in ~/.triage/config.yaml; every setting can also be
set through TRIAGE_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Flags flow through the same env overlay the config loader
		// already reads, so they behave identically to TRIAGE_* vars.
		if configDir != "" {
			os.Setenv("TRIAGE_CONFIG_DIR", configDir)
		}
		if debug {
			os.Setenv("TRIAGE_LOG_LEVEL", "debug")
		}
	},
}

var (
	configDir string
	debug     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "config directory (default ~/.triage)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(cmd.NewRunCommand(nil))
	rootCmd.AddCommand(cmd.NewAnalyzeCommand(nil))
	rootCmd.AddCommand(cmd.NewScheduleCommand(nil))
	rootCmd.AddCommand(cmd.NewRunsCommand(nil))
	rootCmd.AddCommand(cmd.NewStoreCommand(nil))
	rootCmd.AddCommand(cmd.NewAuthCommand())
	rootCmd.AddCommand(cmd.NewVersionCommand())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
