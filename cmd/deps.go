// Package cmd provides CLI commands for the triage tool.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/otherjamesbrown/triage-cli/config"
	"github.com/otherjamesbrown/triage-cli/credentials"
	"github.com/otherjamesbrown/triage-cli/pkg/archive"
	"github.com/otherjamesbrown/triage-cli/pkg/db"
	"github.com/otherjamesbrown/triage-cli/pkg/dedup"
	"github.com/otherjamesbrown/triage-cli/pkg/genai"
	"github.com/otherjamesbrown/triage-cli/pkg/logging"
	"github.com/otherjamesbrown/triage-cli/pkg/mailbox"
	"github.com/otherjamesbrown/triage-cli/pkg/metrics"
	"github.com/otherjamesbrown/triage-cli/pkg/notify"
	"github.com/otherjamesbrown/triage-cli/pkg/pipeline"
	"github.com/otherjamesbrown/triage-cli/pkg/replies"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// gmailScopes covers fetching inbox mail and sending replies.
var gmailScopes = []string{gmailapi.GmailReadonlyScope, gmailapi.GmailSendScope}

// Runtime holds the wired collaborators for one invocation.
type Runtime struct {
	Config   *config.Config
	Logger   logging.Logger
	Registry *genai.Registry
	Provider genai.Provider
	Fetcher  mailbox.Fetcher
	Sender   mailbox.Sender
	Store    dedup.Store
	Archive  *archive.Repository
	Metrics  *metrics.PipelineMetrics

	closers []func()
}

// Close releases held resources in reverse order.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:      logging.Level(cfg.Logging.Level),
		JSONFormat: cfg.Logging.JSON,
		Output:     os.Stderr,
	})
}

// buildRuntime wires everything from the loaded config. inputFile, when
// non-empty, overrides the configured source with a file source; that path
// never constructs a sender, so replies stay off.
func buildRuntime(ctx context.Context, cfg *config.Config, inputFile string, withMetrics bool) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Logger: newLogger(cfg)}

	if err := buildProviders(rt); err != nil {
		return nil, err
	}
	if err := buildSource(ctx, rt, inputFile); err != nil {
		rt.Close()
		return nil, err
	}
	if err := buildStore(rt); err != nil {
		rt.Close()
		return nil, err
	}

	if cfg.Archive.DSN != "" {
		repo, err := archive.Connect(ctx, cfg.Archive.DSN, rt.Logger)
		if err != nil {
			// The archive is auxiliary; a down database never blocks a run.
			rt.Logger.Warn("Run archive unavailable", logging.Err(err))
		} else {
			rt.Archive = repo
			rt.closers = append(rt.closers, repo.Close)
		}
	}

	if withMetrics {
		rt.Metrics = metrics.DefaultPipelineMetrics()
		if rt.Archive != nil {
			prometheus.MustRegister(db.NewPoolStatsCollector(rt.Archive.Pool(), "archive"))
		}
	}

	return rt, nil
}

func buildProviders(rt *Runtime) error {
	rt.Registry = genai.NewRegistry()
	rt.closers = append(rt.closers, func() { _ = rt.Registry.Close() })

	register := func(name string) error {
		key, err := credentials.APIKey(name)
		if err != nil {
			return err
		}
		switch name {
		case "gemini":
			opts := []genai.GeminiOption{}
			if rt.Config.Provider.Model != "" && rt.Config.Provider.Name == "gemini" {
				opts = append(opts, genai.WithGeminiModel(rt.Config.Provider.Model))
			}
			if rt.Config.Provider.BaseURL != "" && rt.Config.Provider.Name == "gemini" {
				opts = append(opts, genai.WithGeminiBaseURL(rt.Config.Provider.BaseURL))
			}
			rt.Registry.Register(name, genai.NewGemini(key, opts...))
		case "openai":
			opts := []genai.OpenAIOption{}
			if rt.Config.Provider.Model != "" && rt.Config.Provider.Name == "openai" {
				opts = append(opts, genai.WithOpenAIModel(rt.Config.Provider.Model))
			}
			if rt.Config.Provider.BaseURL != "" && rt.Config.Provider.Name == "openai" {
				opts = append(opts, genai.WithOpenAIBaseURL(rt.Config.Provider.BaseURL))
			}
			rt.Registry.Register(name, genai.NewOpenAI(key, opts...))
		default:
			return fmt.Errorf("unknown provider %q", name)
		}
		return nil
	}

	if err := register(rt.Config.Provider.Name); err != nil {
		return fmt.Errorf("configuring provider: %w", err)
	}
	rt.Registry.SetPrimary(rt.Config.Provider.Name)

	if fb := rt.Config.Provider.Fallback; fb != "" && fb != rt.Config.Provider.Name {
		if err := register(fb); err != nil {
			rt.Logger.Warn("Fallback provider unavailable",
				logging.Err(err), logging.F("provider", fb))
		} else {
			rt.Registry.SetFallback(fb)
		}
	}

	// Resolve wraps the primary with failover when a fallback is
	// registered, so a failed generation call is retried once on the
	// other provider.
	provider, ok := rt.Registry.Resolve()
	if !ok {
		return fmt.Errorf("no usable generation provider")
	}
	rt.Provider = provider
	return nil
}

func buildSource(ctx context.Context, rt *Runtime, inputFile string) error {
	if inputFile == "" && rt.Config.Mailbox.Source == "file" {
		inputFile = rt.Config.Mailbox.InputFile
	}
	if inputFile != "" {
		rt.Fetcher = mailbox.NewFileSource(inputFile)
		return nil
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return err
	}
	oauthCfg, err := credentials.GmailOAuthConfig(dir, gmailScopes...)
	if err != nil {
		return fmt.Errorf("loading Gmail OAuth config: %w", err)
	}
	token, err := credentials.LoadGmailToken(dir)
	if err != nil {
		return err
	}
	client, err := mailbox.NewGmailClient(ctx, oauthCfg, token)
	if err != nil {
		return fmt.Errorf("connecting to Gmail: %w", err)
	}
	rt.Fetcher = client
	rt.Sender = client
	return nil
}

func buildStore(rt *Runtime) error {
	switch rt.Config.Store.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: rt.Config.Store.RedisAddr})
		rt.closers = append(rt.closers, func() { _ = client.Close() })
		rt.Store = dedup.NewRedisStore(client, rt.Config.Store.RedisKey,
			rt.Config.Store.MaxTracked, rt.Logger)
	default:
		path, err := rt.Config.StorePath()
		if err != nil {
			return err
		}
		rt.Store = dedup.NewFileStore(path, rt.Config.Store.MaxTracked, rt.Logger)
	}
	return nil
}

// pipelineDeps assembles the pipeline from the runtime plus per-command
// reply settings.
func (rt *Runtime) pipelineDeps(workflow *replies.Workflow, listener pipeline.ProgressListener) pipeline.Deps {
	cfg := rt.Config

	notifiers := []notify.Notifier{notify.NewWriterNotifier(os.Stdout)}
	if cfg.Notify.SlackWebhookURL != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notify.SlackWebhookURL))
	}

	var dispatcher *replies.Dispatcher
	if rt.Sender != nil {
		dispatcher = replies.NewDispatcher(rt.Sender, cfg.Replies.SendDelay, rt.Logger)
	}

	return pipeline.Deps{
		Fetcher:      rt.Fetcher,
		Normalizer:   mailbox.NewNormalizer(),
		Store:        rt.Store,
		Classifier: triage.NewClassifier(
			rt.Metrics.InstrumentProvider(rt.Provider, metrics.StageClassify),
			cfg.Provider.Timeout, rt.Logger),
		Consolidator: triage.NewConsolidator(
			rt.Metrics.InstrumentProvider(rt.Provider, metrics.StageConsolidate),
			cfg.Provider.ChunkSize, cfg.Provider.Timeout, rt.Logger),
		Assembler:    triage.NewAssembler(),
		Notifiers:    notifiers,
		Approval:     workflow,
		Dispatcher:   dispatcher,
		Archive:      rt.Archive,
		Metrics:      rt.Metrics,
		Listener:     listener,
		Logger:       rt.Logger,
	}
}

// listFilter builds the fetch filter from config.
func (rt *Runtime) listFilter() mailbox.ListFilter {
	return mailbox.ListFilter{
		Lookback:   rt.Config.Mailbox.Lookback,
		To:         rt.Config.Mailbox.Target,
		MaxResults: int64(rt.Config.Mailbox.MaxItems),
	}
}
