// Package policy evaluates the chat admission policy with OPA.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Input is the document the policy sees for one chat request.
type Input struct {
	Model        string
	SessionID    string
	MessageCount int
	LastRole     string
}

// Decision is the policy outcome.
type Decision struct {
	Allow  bool
	Reason string
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_policy.decision"),
		rego.Module("chat_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// LoadPolicyFile builds an engine from a rego file, or from DefaultPolicy when path is empty.
func LoadPolicyFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate checks a chat request against the policy.
// A policy that leaves decision undefined allows the request.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Decision, error) {
	input := map[string]interface{}{
		"model":         in.Model,
		"session_id":    in.SessionID,
		"message_count": in.MessageCount,
		"last_role":     in.LastRole,
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allow: true, Reason: "default"}, nil
	}

	switch v := results[0].Expressions[0].Value.(type) {
	case bool:
		return Decision{Allow: v}, nil
	case map[string]interface{}:
		d := Decision{}
		if allow, ok := v["allow"].(bool); ok {
			d.Allow = allow
		}
		if reason, ok := v["reason"].(string); ok {
			d.Reason = reason
		}
		return d, nil
	default:
		return Decision{}, fmt.Errorf("unexpected policy result type %T", v)
	}
}

// DefaultPolicy admits every request.
const DefaultPolicy = `
package chat_policy

import rego.v1

default decision := {"allow": true, "reason": ""}
`
