package health

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gethired/jobagents/internal/domain"
)

// Probe checks one dependency. A nil return means the dependency is up.
type Probe func(ctx context.Context) error

// WaitForDependencies polls every probe until all pass, up to attempts
// rounds spaced by interval. Probes that pass once are not polled again.
func WaitForDependencies(ctx context.Context, interval time.Duration, attempts int, probes map[string]Probe) error {
	pending := make(map[string]Probe, len(probes))
	for name, p := range probes {
		pending[name] = p
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		for name, probe := range pending {
			if err := probe(ctx); err != nil {
				logrus.WithError(err).WithFields(logrus.Fields{
					"dependency": name,
					"attempt":    attempt,
				}).Warn("dependency not ready")
				continue
			}
			logrus.WithField("dependency", name).Info("dependency ready")
			delete(pending, name)
		}
		if len(pending) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	return domain.Errorf(domain.ErrorKindTool, "dependencies not ready after %d attempts: %v", attempts, names)
}
