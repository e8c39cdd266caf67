package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/pkg/archive"
	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

type fakeHistory struct {
	runs    []archive.RunSummary
	reports map[string]*triage.Report
}

func (f *fakeHistory) ListRuns(_ context.Context, limit int) ([]archive.RunSummary, error) {
	if limit > 0 && len(f.runs) > limit {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeHistory) GetReport(_ context.Context, runID string) (*triage.Report, error) {
	report, ok := f.reports[runID]
	if !ok {
		return nil, triageerrors.ErrNotFound
	}
	return report, nil
}

func runsTestDeps(history *fakeHistory) *RunsCommandDeps {
	return &RunsCommandDeps{
		LoadConfig: func() (*config.Config, error) {
			cfg := config.DefaultConfig()
			cfg.Archive.DSN = "postgres://triage@localhost/triage"
			return cfg, nil
		},
		OpenArchive: func(ctx context.Context, cfg *config.Config) (runHistory, func(), error) {
			return history, func() {}, nil
		},
	}
}

func TestRunsListTable(t *testing.T) {
	history := &fakeHistory{
		runs: []archive.RunSummary{
			{
				RunID:         "run-aaa",
				Status:        archive.RunStatusCompleted,
				StartedAt:     time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC),
				TotalItems:    12,
				RelevantItems: 9,
				RepliesSent:   3,
			},
			{
				RunID:     "run-bbb",
				Status:    archive.RunStatusFailed,
				StartedAt: time.Date(2026, 2, 28, 7, 0, 0, 0, time.UTC),
			},
		},
	}

	cmd := NewRunsCommand(runsTestDeps(history))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "run-aaa")
	assert.Contains(t, out.String(), "run-bbb")
	assert.Contains(t, out.String(), "completed")
	assert.Contains(t, out.String(), "failed")
}

func TestRunsListEmpty(t *testing.T) {
	cmd := NewRunsCommand(runsTestDeps(&fakeHistory{}))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No archived runs.")
}

func TestRunsShowYAML(t *testing.T) {
	history := &fakeHistory{
		reports: map[string]*triage.Report{
			"run-aaa": {
				Timestamp:    "2026-03-01T07:00:12Z",
				AnalysisText: "## Technical Issues\n- login timeout",
				Summary:      triage.Summary{TotalItems: 2, RelevantItems: 2},
				Metadata:     triage.Metadata{Provider: "gemini"},
			},
		},
	}

	cmd := NewRunsCommand(runsTestDeps(history))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"show", "run-aaa"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "analysis_text:")
	assert.Contains(t, out.String(), "login timeout")
	assert.Contains(t, out.String(), "provider: gemini")
}

func TestRunsShowUnknownRun(t *testing.T) {
	cmd := NewRunsCommand(runsTestDeps(&fakeHistory{reports: map[string]*triage.Report{}}))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "run-zzz"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, triageerrors.ErrNotFound))
}

func TestRunsShowBadOutputFormat(t *testing.T) {
	runsOutput = "yaml" // reset package flag state from other tests

	history := &fakeHistory{
		reports: map[string]*triage.Report{"run-aaa": {Timestamp: "2026-03-01T07:00:12Z"}},
	}
	cmd := NewRunsCommand(runsTestDeps(history))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "run-aaa", "--output", "toml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
