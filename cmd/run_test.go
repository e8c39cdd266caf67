package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/pkg/replies"
)

func TestApplyRunFlags(t *testing.T) {
	cmd := NewRunCommand(DefaultRunDeps())
	require.NoError(t, cmd.ParseFlags([]string{
		"--replies",
		"--mode", "threshold",
		"--threshold", "0.85",
		"--max-replies", "3",
		"--dry-run",
		"--lookback", "48h",
		"--target", "support@corp.example",
	}))

	cfg := config.DefaultConfig()
	applyRunFlags(cfg, cmd)

	assert.True(t, cfg.Replies.Enabled)
	assert.Equal(t, replies.ModeThreshold, cfg.Replies.Mode)
	assert.InDelta(t, 0.85, cfg.Replies.Threshold, 0.001)
	assert.Equal(t, 3, cfg.Replies.MaxPerRun)
	assert.True(t, cfg.Replies.DryRun)
	assert.Equal(t, 48*time.Hour, cfg.Mailbox.Lookback)
	assert.Equal(t, "support@corp.example", cfg.Mailbox.Target)
}

func TestApplyRunFlagsLeavesConfigUntouched(t *testing.T) {
	runReplies, runDryRun, runLookback, runTarget = false, false, 0, ""
	cmd := NewRunCommand(DefaultRunDeps())
	require.NoError(t, cmd.ParseFlags([]string{}))

	cfg := config.DefaultConfig()
	cfg.Replies.Mode = replies.ModeAuto
	cfg.Replies.Threshold = 0.6
	applyRunFlags(cfg, cmd)

	assert.Equal(t, replies.ModeAuto, cfg.Replies.Mode, "unset flags must not override config")
	assert.InDelta(t, 0.6, cfg.Replies.Threshold, 0.001)
}

func TestVersionCommand(t *testing.T) {
	cmd := NewVersionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "triage dev")
	assert.Contains(t, out.String(), "commit:")
}
