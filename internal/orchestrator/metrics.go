package orchestrator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTasksTotal = "github_feedback.orchestrator.tasks.total"

	attrKind   = "kind"
	attrStatus = "status"
)

// Metrics holds the orchestrator's OTel instruments.
type Metrics struct {
	tasks metric.Int64Counter
}

// NewMetrics creates the task outcome counter from the given meter.
func NewMetrics(mt metric.Meter) (*Metrics, error) {
	tasks, err := mt.Int64Counter(metricTasksTotal,
		metric.WithDescription("Completed orchestrator tasks by kind and outcome"),
		metric.WithUnit("{task}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTasksTotal, err)
	}
	return &Metrics{tasks: tasks}, nil
}

// recordTask is safe to call on a nil receiver.
func (m *Metrics) recordTask(ctx context.Context, kind Kind, status Status) {
	if m == nil {
		return
	}
	m.tasks.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrKind, kind.String()),
		attribute.String(attrStatus, status.String()),
	))
}
