// Package pipeline wires the full triage flow: fetch, normalize, dedup,
// per-item classification, chunked consolidation, report assembly, delivery,
// and the optional approval-gated reply dispatch.
//
// The flow is a single sequence of blocking stages. Items are classified
// one at a time and replies are sent one at a time: the external generation
// and mail services are the bottleneck and are rate-limited, so nothing here
// runs a worker pool.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/otherjamesbrown/triage-cli/pkg/archive"
	"github.com/otherjamesbrown/triage-cli/pkg/dedup"
	triageerrors "github.com/otherjamesbrown/triage-cli/pkg/errors"
	"github.com/otherjamesbrown/triage-cli/pkg/logging"
	"github.com/otherjamesbrown/triage-cli/pkg/mailbox"
	"github.com/otherjamesbrown/triage-cli/pkg/metrics"
	"github.com/otherjamesbrown/triage-cli/pkg/notify"
	"github.com/otherjamesbrown/triage-cli/pkg/replies"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// Deps carries the pipeline's collaborators. Archive, Metrics, and Listener
// are optional; nil disables them.
type Deps struct {
	Fetcher      mailbox.Fetcher
	Normalizer   *mailbox.Normalizer
	Store        dedup.Store
	Classifier   *triage.Classifier
	Consolidator *triage.Consolidator
	Assembler    *triage.Assembler
	Notifiers    []notify.Notifier
	Approval     *replies.Workflow
	Dispatcher   *replies.Dispatcher
	Archive      *archive.Repository
	Metrics      *metrics.PipelineMetrics
	Listener     ProgressListener
	Logger       logging.Logger
}

// Options controls one run.
type Options struct {
	Filter mailbox.ListFilter

	// ProviderName is recorded in the report metadata.
	ProviderName string

	// RepliesEnabled gates the approval and dispatch stages.
	RepliesEnabled bool
}

// RunResult summarizes one completed run.
type RunResult struct {
	RunID         string
	Report        *triage.Report
	Fetched       int
	Deduped       int
	Processed     int
	RelevantItems int
	RepliesSent   int
	RepliesFailed int
	QuitRequested bool
	Duration      time.Duration
}

// Pipeline executes the triage flow.
type Pipeline struct {
	deps Deps
}

// New creates a pipeline. Logger and Listener default to no-ops.
func New(deps Deps) *Pipeline {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	if deps.Listener == nil {
		deps.Listener = NopListener{}
	}
	return &Pipeline{deps: deps}
}

// Run executes one full pass. Classification and consolidation failures are
// absorbed by the stages themselves; Run fails only when the fetch fails or
// the approval configuration is invalid.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*RunResult, error) {
	d := p.deps
	started := time.Now()
	result := &RunResult{RunID: uuid.New().String()}
	log := d.Logger.With(logging.F("run_id", result.RunID))

	fail := func(err error) (*RunResult, error) {
		p.observeRun("failed", started)
		d.Listener.RunFailed(err)
		return nil, err
	}

	// Fetch and normalize.
	items, err := d.Fetcher.ListNewMessages(ctx, opts.Filter)
	if err != nil {
		return fail(fmt.Errorf("fetching items: %w", err))
	}
	items = d.Normalizer.CleanAll(items)
	result.Fetched = len(items)
	if d.Metrics != nil {
		d.Metrics.ItemsFetchedTotal.Add(float64(len(items)))
	}

	// Dedup filter, read once at the start. An unreadable store degrades to
	// processing everything as new.
	processed, err := d.Store.Load(ctx)
	if err != nil {
		log.Warn("Dedup store unreadable, treating all items as new", logging.Err(err))
		processed = map[string]struct{}{}
	}
	newItems := dedup.FilterNew(items, func(m mailbox.Message) string { return m.ID }, processed)
	result.Deduped = result.Fetched - len(newItems)
	result.Processed = len(newItems)
	if d.Metrics != nil {
		d.Metrics.ItemsDedupedTotal.Add(float64(result.Deduped))
	}

	d.Listener.RunStarted(result.RunID, len(newItems))
	log.Info("Run started",
		logging.F("fetched", result.Fetched),
		logging.F("already_processed", result.Deduped),
		logging.F("to_process", len(newItems)))

	// Classify each new item in input order.
	results := make([]triage.Result, 0, len(newItems))
	for i, item := range newItems {
		r := d.Classifier.Classify(ctx, item)
		results = append(results, r)
		if r.IsRelevant {
			result.RelevantItems++
		}
		if d.Metrics != nil {
			d.Metrics.ItemsProcessedTotal.WithLabelValues(boolLabel(r.IsRelevant)).Inc()
			if r.Degraded {
				d.Metrics.ClassificationFailures.Inc()
			}
		}
		d.Listener.ItemProcessed(i+1, len(newItems), r)
	}

	// Consolidate and assemble. Zero items short-circuits to an explicit
	// empty report without any generation call.
	consolidation := d.Consolidator.Consolidate(ctx, results)
	if d.Metrics != nil {
		d.Metrics.ConsolidationChunks.Add(float64(consolidation.Chunks))
		d.Metrics.FailedChunksTotal.Add(float64(consolidation.FailedChunks))
	}
	d.Listener.ConsolidationDone(consolidation.Chunks, consolidation.FailedChunks)

	report := d.Assembler.Assemble(results, consolidation.AnalysisText, triage.Metadata{
		Provider: opts.ProviderName,
		Model:    consolidation.Model,
	})
	result.Report = report

	delivered := notify.Deliver(ctx, report, d.Notifiers, log)
	log.Info("Report delivered",
		logging.F("channels", len(d.Notifiers)), logging.F("delivered", delivered))

	// Approval and dispatch.
	if opts.RepliesEnabled && d.Approval != nil && d.Dispatcher != nil {
		if err := p.runReplies(ctx, results, result, log); err != nil {
			if triageerrors.IsQuit(err) {
				result.QuitRequested = true
				log.Info("Review quit, skipping dispatch")
			} else {
				return fail(err)
			}
		}
	}

	// Record processed ids, written once at the end so a failed run retries
	// its items next time.
	if len(newItems) > 0 {
		ids := make([]string, len(newItems))
		for i, item := range newItems {
			ids[i] = item.ID
		}
		processed = dedup.Record(processed, ids)
		if err := d.Store.Save(ctx, processed); err != nil {
			log.Warn("Failed to persist dedup store", logging.Err(err))
		}
	}

	result.Duration = time.Since(started)
	p.observeRun("completed", started)
	p.archiveRun(ctx, result, started, log)
	d.Listener.RunCompleted(result)
	log.Info("Run completed",
		logging.F("processed", result.Processed),
		logging.F("relevant", result.RelevantItems),
		logging.F("replies_sent", result.RepliesSent),
		logging.F("duration_ms", result.Duration.Milliseconds()))

	return result, nil
}

func (p *Pipeline) runReplies(ctx context.Context, results []triage.Result, result *RunResult, log logging.Logger) error {
	candidates := replies.CandidatesFrom(results)
	if len(candidates) == 0 {
		log.Info("No reply candidates this run")
		return nil
	}

	summary, err := p.deps.Approval.Review(candidates)
	if err != nil {
		return err
	}
	if summary.DryRun {
		log.Info("Dry run, no replies dispatched",
			logging.F("would_approve", summary.WouldApprove))
		return nil
	}
	if len(summary.Approved) == 0 {
		log.Info("No replies approved", logging.F("skipped", summary.Skipped))
		return nil
	}

	dispatch := p.deps.Dispatcher.Dispatch(ctx, summary.Approved)
	result.RepliesSent = dispatch.Sent
	result.RepliesFailed = dispatch.Failed
	if p.deps.Metrics != nil {
		p.deps.Metrics.RepliesTotal.WithLabelValues("sent").Add(float64(dispatch.Sent))
		p.deps.Metrics.RepliesTotal.WithLabelValues("failed").Add(float64(dispatch.Failed))
	}
	return nil
}

func (p *Pipeline) observeRun(status string, started time.Time) {
	if p.deps.Metrics == nil {
		return
	}
	p.deps.Metrics.RunsTotal.WithLabelValues(status).Inc()
	p.deps.Metrics.RunDurationSeconds.Observe(time.Since(started).Seconds())
}

// archiveRun stores the run record when an archive is configured. Archive
// failures never affect the run outcome.
func (p *Pipeline) archiveRun(ctx context.Context, result *RunResult, started time.Time, log logging.Logger) {
	if p.deps.Archive == nil {
		return
	}
	_, err := p.deps.Archive.RecordRun(ctx, &archive.RunRecord{
		RunID:         result.RunID,
		Status:        archive.RunStatusCompleted,
		StartedAt:     started,
		CompletedAt:   time.Now(),
		TotalItems:    result.Report.Summary.TotalItems,
		RelevantItems: result.Report.Summary.RelevantItems,
		GeneralItems:  result.Report.Summary.GeneralItems,
		RepliesSent:   result.RepliesSent,
		RepliesFailed: result.RepliesFailed,
		Report:        result.Report,
	})
	if err != nil {
		log.Warn("Failed to archive run", logging.Err(err))
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
