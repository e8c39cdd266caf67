package metrics

import (
	"context"
	"time"

	"github.com/otherjamesbrown/triage-cli/pkg/genai"
)

// Stage labels for generation call metrics.
const (
	StageClassify    = "classify"
	StageConsolidate = "consolidate"
)

// Outcome labels for generation call metrics.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// instrumentedProvider counts and times every generation call.
type instrumentedProvider struct {
	inner   genai.Provider
	metrics *PipelineMetrics
	stage   string
}

// InstrumentProvider wraps p so each Complete call is counted and timed
// under the given stage label. A nil receiver returns p unchanged, so
// callers don't need to special-case runs without metrics.
func (m *PipelineMetrics) InstrumentProvider(p genai.Provider, stage string) genai.Provider {
	if m == nil {
		return p
	}
	return &instrumentedProvider{inner: p, metrics: m, stage: stage}
}

func (ip *instrumentedProvider) Name() string { return ip.inner.Name() }

func (ip *instrumentedProvider) Complete(ctx context.Context, req genai.Request) (*genai.Response, error) {
	start := time.Now()
	resp, err := ip.inner.Complete(ctx, req)
	ip.metrics.GenerationLatencyMs.Observe(float64(time.Since(start).Milliseconds()))

	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	ip.metrics.GenerationCallsTotal.WithLabelValues(ip.stage, outcome).Inc()
	return resp, err
}

func (ip *instrumentedProvider) Close() error { return ip.inner.Close() }
