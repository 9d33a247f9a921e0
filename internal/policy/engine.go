// Package policy evaluates the keyword triage policy with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the triage tuple produced by the policy.
type Decision struct {
	Priority        string
	Label           string
	SuggestedAction string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content. The
// module must define data.triage.decision.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.triage.decision"),
		rego.Module("triage.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate classifies a message. Input carries the message under "message".
func (e *Engine) Evaluate(ctx context.Context, message string) (Decision, error) {
	input := map[string]interface{}{"message": message}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("policy produced no decision")
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected decision type %T", results[0].Expressions[0].Value)
	}

	d := Decision{}
	d.Priority, _ = obj["priority"].(string)
	d.Label, _ = obj["label"].(string)
	d.SuggestedAction, _ = obj["suggested_action"].(string)
	if d.Priority == "" || d.Label == "" || d.SuggestedAction == "" {
		return Decision{}, fmt.Errorf("incomplete decision: %v", obj)
	}
	return d, nil
}

// DefaultPolicy is the keyword triage policy. Matching is a case-insensitive
// substring scan; urgent terms win over informational ones.
const DefaultPolicy = `
package triage

urgent_terms = [
	"urgente", "urgent", "urgencia", "emergencia", "emergency",
	"dolor", "pain", "hoy", "today", "ahora", "now",
	"necesito", "need", "fractura", "fracture",
]

info_terms = [
	"precio", "price", "costo", "cost", "valor",
	"horario", "schedule", "disponibilidad", "availability",
	"cotizacion", "cotización", "quote",
]

msg = lower(input.message)

urgent {
	some i
	contains(msg, urgent_terms[i])
}

informational {
	not urgent
	some i
	contains(msg, info_terms[i])
}

default decision = {"priority": "Baja", "label": "Consulta", "suggested_action": "Automatico"}

decision = {"priority": "Alta", "label": "Potencial cita", "suggested_action": "Derivar a equipo"} {
	urgent
}

decision = {"priority": "Media", "label": "Potencial cita", "suggested_action": "Derivar a equipo"} {
	informational
}
`
