package control

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/GhostbusterQuest/huntcore/internal/control"

type metrics struct {
	queued    metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
}

// newMetrics uses the global OTel meter (no-op if not configured). depths is polled at
// collection time and returns the waiting events keyed by queue name.
func newMetrics(depths func() map[string]int) (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)

	out.queued, err = m.Int64ObservableGauge("control.queue.size",
		metric.WithDescription("Commands waiting to run"))
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for name, n := range depths() {
			o.ObserveInt64(out.queued, int64(n), metric.WithAttributes(attribute.String("command", name)))
		}
		return nil
	}, out.queued)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	out.processed, err = m.Int64Counter("control.commands.processed",
		metric.WithDescription("Commands run by deferred or buffered handlers"))
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	out.dropped, err = m.Int64Counter("control.commands.dropped",
		metric.WithDescription("Commands refused because a queue was full or closed"))
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	return &out, nil
}

func (m *metrics) ran(command string) {
	m.processed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}

func (m *metrics) drop(command string) {
	m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", command)))
}
