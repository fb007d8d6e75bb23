package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the gathered metrics to a Pushgateway under the given job name,
// grouped by run id. A blank url is a no-op.
func Push(ctx context.Context, url, job, runID string, g prometheus.Gatherer) error {
	if url == "" {
		return nil
	}
	p := push.New(url, job).Gatherer(g)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
