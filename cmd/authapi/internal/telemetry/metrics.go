package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// GrantMetrics holds metric instruments for token endpoint grants.
// Initialize once at server startup and share across handlers.
type GrantMetrics struct {
	GrantAttempts metric.Int64Counter // Total grant requests
	GrantFailures metric.Int64Counter // Grants answered with an OAuth error
	GrantDuration metric.Float64Histogram
}

// NewGrantMetrics creates metric instruments for grant telemetry.
func NewGrantMetrics() (*GrantMetrics, error) {
	meter := otel.Meter("authapi/grant")

	grantAttempts, err := meter.Int64Counter(
		"grant.attempt.count",
		metric.WithDescription("Total number of token grant requests"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	grantFailures, err := meter.Int64Counter(
		"grant.failure.count",
		metric.WithDescription("Total number of rejected token grant requests"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	grantDuration, err := meter.Float64Histogram(
		"grant.duration",
		metric.WithDescription("Token grant processing duration"),
		metric.WithUnit("ms"),
		// bcrypt dominates password grants
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	return &GrantMetrics{
		GrantAttempts: grantAttempts,
		GrantFailures: grantFailures,
		GrantDuration: grantDuration,
	}, nil
}

// RecordGrant records a grant request with its type, result code and duration.
// code is empty on success, otherwise the OAuth error code.
func (g *GrantMetrics) RecordGrant(ctx context.Context, grantType, code string, durationMs float64) {
	if g == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrGrantType, grantType),
		attribute.Bool("grant.success", code == ""),
	)

	g.GrantAttempts.Add(ctx, 1, attrs)
	g.GrantDuration.Record(ctx, durationMs, attrs)

	if code != "" {
		g.GrantFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String(AttrGrantType, grantType),
			attribute.String("grant.error", code),
		))
	}
}

// PolicyMetrics counts authorization decisions per policy.
type PolicyMetrics struct {
	Decisions metric.Int64Counter
}

// NewPolicyMetrics creates metric instruments for policy evaluation.
func NewPolicyMetrics() (*PolicyMetrics, error) {
	meter := otel.Meter("authapi/authz")

	decisions, err := meter.Int64Counter(
		"policy.decision.count",
		metric.WithDescription("Total number of policy evaluations"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}
	return &PolicyMetrics{Decisions: decisions}, nil
}

// RecordDecision records the outcome of a single policy evaluation.
func (p *PolicyMetrics) RecordDecision(ctx context.Context, policy string, allowed bool) {
	if p == nil {
		return
	}
	p.Decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPolicyName, policy),
		attribute.Bool(AttrPolicyAllowed, allowed),
	))
}
