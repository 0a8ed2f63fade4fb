package llm

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricAttemptsTotal = "github_feedback.llm.attempts.total"

	attrOperation = "operation"
	attrOutcome   = "outcome"

	outcomeOK     = "ok"
	outcomeRetry  = "retry"
	outcomeFailed = "failed"
)

// Metrics holds the LLM client's OTel instruments.
type Metrics struct {
	attempts metric.Int64Counter
}

// NewMetrics creates the attempt counter from the given meter.
func NewMetrics(mt metric.Meter) (*Metrics, error) {
	attempts, err := mt.Int64Counter(metricAttemptsTotal,
		metric.WithDescription("Chat completion attempts by operation and outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricAttemptsTotal, err)
	}
	return &Metrics{attempts: attempts}, nil
}

func (m *Metrics) recordAttempt(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.attempts.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrOutcome, outcome),
	))
}
