// Package notify delivers finished reports to the configured channels.
// Delivery is best-effort: a failing channel is logged and never affects the
// run outcome or the other channels.
package notify

import (
	"context"
	"sync"

	"github.com/otherjamesbrown/triage-cli/pkg/logging"
	"github.com/otherjamesbrown/triage-cli/pkg/triage"
)

// Notifier delivers one report to one channel.
type Notifier interface {
	// Name identifies the channel in logs.
	Name() string

	// Notify delivers the report.
	Notify(ctx context.Context, report *triage.Report) error
}

// Deliver sends the report to every notifier concurrently and waits for all
// of them. Failures are isolated per channel; the returned count is how many
// deliveries succeeded.
func Deliver(ctx context.Context, report *triage.Report, notifiers []Notifier, logger logging.Logger) int {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	delivered := 0

	for _, n := range notifiers {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()
			if err := n.Notify(ctx, report); err != nil {
				logger.Warn("Report delivery failed", logging.Err(err), logging.F("channel", n.Name()))
				return
			}
			mu.Lock()
			delivered++
			mu.Unlock()
		}(n)
	}

	wg.Wait()
	return delivered
}
