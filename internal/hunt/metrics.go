package hunt

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/GhostbusterQuest/huntcore/internal/hunt"

type metrics struct {
	shots        metric.Int64Counter
	hits         metric.Int64Counter
	captures     metric.Int64Counter
	assetsFailed metric.Int64Counter
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	var (
		out metrics
		err error
	)

	out.shots, err = m.Int64Counter("hunt.shots.fired", metric.WithDescription("Projectiles spawned"))
	if err != nil {
		return nil, fmt.Errorf("creating shots counter: %w", err)
	}
	out.hits, err = m.Int64Counter("hunt.hits", metric.WithDescription("Hits that froze the ghost"))
	if err != nil {
		return nil, fmt.Errorf("creating hits counter: %w", err)
	}
	out.captures, err = m.Int64Counter("hunt.captures", metric.WithDescription("Completed capture sequences"))
	if err != nil {
		return nil, fmt.Errorf("creating captures counter: %w", err)
	}
	out.assetsFailed, err = m.Int64Counter("hunt.assets.failed", metric.WithDescription("Ghost model loads that failed"))
	if err != nil {
		return nil, fmt.Errorf("creating assets counter: %w", err)
	}
	return &out, nil
}

func (m *metrics) shot() {
	m.shots.Add(context.Background(), 1)
}

func (m *metrics) hit(byAim bool) {
	source := "projectile"
	if byAim {
		source = "aim"
	}
	m.hits.Add(context.Background(), 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *metrics) captured() {
	m.captures.Add(context.Background(), 1)
}

func (m *metrics) assetFailed(modelID string) {
	m.assetsFailed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("model", modelID)))
}
