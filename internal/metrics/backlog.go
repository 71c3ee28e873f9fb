package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// BacklogFunc returns the number of outbox messages not yet published.
type BacklogFunc func(ctx context.Context) (int64, error)

// RegisterBacklogGauge exposes <namespace>_outbox_backlog, observed through observe on
// every collection. A failing observation is skipped.
func RegisterBacklogGauge(meterProvider metric.MeterProvider, namespace string, observe BacklogFunc) error {
	meter := meterProvider.Meter(namespace)

	_, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_outbox_backlog", namespace),
		metric.WithDescription("Outbox messages waiting to be published"),
		metric.WithUnit("{message}"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			n, err := observe(ctx)
			if err != nil {
				return nil
			}
			o.Observe(n)
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox backlog gauge: %w", err)
	}
	return nil
}
