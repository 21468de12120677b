package authz

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"

	"github.com/hospitalbooking/hospitalauth/cmd/authapi/internal/claims"
)

// evaluatorCache stores compiled go-bexpr evaluators keyed by expression
var evaluatorCache = &sync.Map{}

func compileExpression(expr string) (*bexpr.Evaluator, error) {
	if cached, ok := evaluatorCache.Load(expr); ok {
		return cached.(*bexpr.Evaluator), nil
	}
	evaluator, err := bexpr.CreateEvaluator(expr)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expr, err)
	}
	evaluatorCache.Store(expr, evaluator)
	return evaluator, nil
}

// expressionData exposes the principal to expressions:
//
//	authenticated  bool
//	subject        string
//	roles          []string
//	scopes         []string
//	claims         map of claim name to its first value
//
// Example: "Manager" in roles and "department" in claims
func expressionData(p *claims.Principal) map[string]any {
	firstValues := make(map[string]string)
	var roles, scopes []string
	subject := ""
	if p != nil {
		for _, c := range p.Claims {
			if _, seen := firstValues[c.Name()]; !seen {
				firstValues[c.Name()] = c.Value
			}
		}
		roles = p.Roles()
		scopes = p.Scopes
		subject = p.Subject
	}
	if roles == nil {
		roles = []string{}
	}
	if scopes == nil {
		scopes = []string{}
	}
	return map[string]any{
		"authenticated": p.IsAuthenticated(),
		"subject":       subject,
		"roles":         roles,
		"scopes":        scopes,
		"claims":        firstValues,
	}
}

// evaluateExpression reports whether expr matches p. Evaluation errors, such
// as a selector that does not resolve, deny.
func evaluateExpression(expr string, p *claims.Principal) bool {
	if strings.TrimSpace(expr) == "" {
		return false
	}
	evaluator, err := compileExpression(expr)
	if err != nil {
		return false
	}
	matches, err := evaluator.Evaluate(expressionData(p))
	if err != nil {
		return false
	}
	return matches
}
