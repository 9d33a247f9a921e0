// Package triage classifies inbound messages by priority and urgency.
package triage

import (
	"context"
	"errors"
	"log"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/policy"
)

// ErrNoSignals is returned by ModelClassifier when the analysis model did not
// produce classification fields for the turn.
var ErrNoSignals = errors.New("no classification signals")

// Source identifies which strategy produced a triage result.
type Source string

const (
	SourceModel   Source = "model"
	SourceKeyword Source = "keyword"
)

// Request is the input to a classifier.
type Request struct {
	Message  string
	Current  domain.Triage
	Captured domain.Captured
	// Signals holds classification fields produced by the analysis model for
	// this turn, nil when that call failed.
	Signals *domain.Classification
}

// Classifier maps a message to a triage tuple.
type Classifier interface {
	Classify(ctx context.Context, req Request) (domain.Triage, error)
}

// ModelClassifier uses the classification returned by the analysis model.
// Missing fields keep the session's current value.
type ModelClassifier struct{}

// Classify merges the model signals over the current triage.
func (ModelClassifier) Classify(_ context.Context, req Request) (domain.Triage, error) {
	if req.Signals == nil {
		return domain.Triage{}, ErrNoSignals
	}

	out := req.Current
	if p := req.Signals.Priority; p != nil && p.Valid() {
		out.Priority = *p
	}
	if l := req.Signals.Label; l != nil && l.Valid() {
		out.Label = *l
	}
	if a := req.Signals.SuggestedAction; a != nil && a.Valid() {
		out.SuggestedAction = *a
	}
	return out, nil
}

// KeywordClassifier applies the deterministic keyword policy. It never fails:
// a policy error yields the default triage.
type KeywordClassifier struct {
	engine *policy.Engine
}

// NewKeywordClassifier creates a classifier backed by the given policy engine.
func NewKeywordClassifier(engine *policy.Engine) *KeywordClassifier {
	return &KeywordClassifier{engine: engine}
}

// Classify evaluates the keyword policy against the message.
func (k *KeywordClassifier) Classify(ctx context.Context, req Request) (domain.Triage, error) {
	if k.engine == nil {
		return domain.DefaultTriage(), nil
	}

	d, err := k.engine.Evaluate(ctx, req.Message)
	if err != nil {
		log.Printf("WARN: keyword triage policy failed: %v", err)
		return domain.DefaultTriage(), nil
	}

	t := domain.Triage{
		Priority:        domain.Priority(d.Priority),
		Label:           domain.Label(d.Label),
		SuggestedAction: domain.Action(d.SuggestedAction),
	}
	if !t.Priority.Valid() || !t.Label.Valid() || !t.SuggestedAction.Valid() {
		log.Printf("WARN: keyword triage policy returned unknown values: %+v", d)
		return domain.DefaultTriage(), nil
	}
	return t, nil
}

// Chain tries Primary and falls back to Fallback when it fails.
type Chain struct {
	Primary  Classifier
	Fallback Classifier
}

// Classify implements Classifier.
func (c *Chain) Classify(ctx context.Context, req Request) (domain.Triage, error) {
	t, _, err := c.ClassifyWithSource(ctx, req)
	return t, err
}

// ClassifyWithSource classifies and reports which strategy produced the result.
func (c *Chain) ClassifyWithSource(ctx context.Context, req Request) (domain.Triage, Source, error) {
	if c.Primary != nil {
		t, err := c.Primary.Classify(ctx, req)
		if err == nil {
			return t, SourceModel, nil
		}
		if !errors.Is(err, ErrNoSignals) {
			log.Printf("WARN: primary triage failed, using keyword fallback: %v", err)
		}
	}

	t, err := c.Fallback.Classify(ctx, req)
	if err != nil {
		return req.Current, SourceKeyword, err
	}
	return t, SourceKeyword, nil
}
