package authz

import (
	"context"
	"fmt"
	"log"

	"go.opentelemetry.io/otel/attribute"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/telemetry"
)

const tracerName = "authapi/authz"

// Outcome is the result of evaluating a policy.
type Outcome int

const (
	Failed Outcome = iota
	Succeeded
)

func (o Outcome) String() string {
	if o == Succeeded {
		return "succeeded"
	}
	return "failed"
}

// Decision is an Outcome plus the requirement that failed, for server-side logs.
// Only Allowed crosses the trust boundary.
type Decision struct {
	Policy   string
	Outcome  Outcome
	FailedOn Requirement
}

// Allowed reports whether the policy succeeded.
func (d Decision) Allowed() bool {
	return d.Outcome == Succeeded
}

// Evaluator decides policies against principals. It is safe for concurrent use
// once the registry is no longer modified.
type Evaluator struct {
	registry *Registry
	metrics  *telemetry.PolicyMetrics
}

// NewEvaluator returns an Evaluator over registry. metrics may be nil.
func NewEvaluator(registry *Registry, metrics *telemetry.PolicyMetrics) *Evaluator {
	return &Evaluator{registry: registry, metrics: metrics}
}

// Evaluate checks every requirement of the named policy in order and stops at
// the first one that does not succeed. An unknown policy name is a
// *ConfigurationError; handler errors are returned wrapped.
func (e *Evaluator) Evaluate(ctx context.Context, policyName string, p *claims.Principal, resourceID string) (Decision, error) {
	policy, ok := e.registry.Policy(policyName)
	if !ok {
		return Decision{Policy: policyName}, &ConfigurationError{Policy: policyName, Reason: "not registered"}
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "authz.Evaluate",
		attribute.String(telemetry.AttrPolicyName, policyName),
		attribute.String(telemetry.AttrPolicyResource, resourceID),
		attribute.String(telemetry.AttrPrincipalSubject, subjectOf(p)),
	)
	defer span.End()

	req := Request{Principal: p, ResourceID: resourceID}
	decision := Decision{Policy: policyName, Outcome: Succeeded}
	requirements := policy.Requirements
	if len(requirements) == 0 {
		requirements = []Requirement{RequireAuthenticatedUser{}}
	}
	for _, requirement := range requirements {
		satisfied, err := e.satisfied(ctx, req, requirement)
		if err != nil {
			telemetry.RecordError(span, err)
			return Decision{Policy: policyName}, fmt.Errorf("evaluate policy %s: %w", policyName, err)
		}
		if !satisfied {
			decision = Decision{Policy: policyName, Outcome: Failed, FailedOn: requirement}
			break
		}
	}

	span.SetAttributes(attribute.Bool(telemetry.AttrPolicyAllowed, decision.Allowed()))
	e.metrics.RecordDecision(ctx, policyName, decision.Allowed())
	if !decision.Allowed() {
		log.Printf("INFO: policy %s denied subject %q: %s not satisfied", policyName, subjectOf(p), decision.FailedOn)
	}
	return decision, nil
}

func (e *Evaluator) satisfied(ctx context.Context, req Request, requirement Requirement) (bool, error) {
	p := req.Principal
	switch r := requirement.(type) {
	case RequireAuthenticatedUser:
		return p.IsAuthenticated(), nil

	case RequireRole:
		for _, role := range r.Roles {
			if p.IsInRole(role) {
				return true, nil
			}
		}
		return false, nil

	case RequireClaim:
		held := p.Values(r.Type)
		if len(held) == 0 {
			return false, nil
		}
		if len(r.Values) == 0 {
			return true, nil
		}
		for _, v := range held {
			for _, accepted := range r.Values {
				if v == accepted {
					return true, nil
				}
			}
		}
		return false, nil

	case RequireExpression:
		return evaluateExpression(r.Expr, p), nil

	case CustomRequirement:
		handlers := e.registry.handlersFor(r.HandlerKey())
		if len(handlers) == 0 {
			return false, &ConfigurationError{Reason: fmt.Sprintf("no handler registered for %q", r.HandlerKey())}
		}
		for _, h := range handlers {
			vote, err := h.Handle(ctx, req, r)
			if err != nil {
				return false, err
			}
			if vote == VoteSucceed {
				return true, nil
			}
		}
		return false, nil
	}
	return false, &ConfigurationError{Reason: fmt.Sprintf("unsupported requirement %T", requirement)}
}

func subjectOf(p *claims.Principal) string {
	if p == nil {
		return ""
	}
	return p.Subject
}
