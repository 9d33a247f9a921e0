package service

import (
	"context"
	"log"
	"strings"
	"unicode"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/metrics"
	"github.com/autonomia2025/autonomia-suite-landing/internal/triage"
)

// advance runs one turn of the conversation state machine and returns the
// reply. The reply is never empty.
func (s *Service) advance(ctx context.Context, sess *domain.Session, raw string) string {
	sess.Touch(s.now())

	switch sess.Step() {
	case domain.StepDone:
		return s.opts.Prompts.Terminal

	case domain.StepGreeting:
		sess.SetStep(domain.StepReason)
		s.record(sess, domain.TimelineSystem, domain.LabelGreetingSent)
		return s.reply(ctx, sess, "")
	}

	message := sanitize(raw, s.opts.MaxMessageChars)
	if message != "" {
		s.record(sess, domain.TimelinePatient, domain.LabelMessageReceived)

		extraction := s.extractor.Extract(ctx, sess.Captured(), message)
		if extraction != nil {
			s.applyFields(sess, extraction.Fields)
		}
		s.classify(ctx, sess, message, extraction)
	}

	if sess.Captured().Complete(s.opts.RequiredFields) {
		sess.SetStep(domain.StepDone)
		s.record(sess, domain.TimelineSystem, domain.LabelDataComplete)
		return s.opts.Prompts.Closing
	}

	return s.reply(ctx, sess, message)
}

// applyFields stores new or changed fields and announces them in one batch.
func (s *Service) applyFields(sess *domain.Session, fields domain.Captured) {
	changed := make(domain.PatientUpdatedPayload)
	for _, f := range domain.RequiredFields {
		v, ok := fields[f]
		if !ok || !sess.SetField(f, v) {
			continue
		}
		s.record(sess, domain.TimelinePatient, f.Label()+" detected")
		changed[f] = v
	}
	if len(changed) > 0 {
		s.publish(sess.ID, domain.EventPatientUpdated, changed)
	}
}

// classify replaces the session triage and announces it.
func (s *Service) classify(ctx context.Context, sess *domain.Session, message string, extraction *domain.Extraction) {
	req := triage.Request{
		Message:  message,
		Current:  sess.Triage(),
		Captured: sess.Captured(),
	}
	if extraction != nil {
		signals := extraction.Classification
		req.Signals = &signals
	}

	result, source, err := s.classifier.ClassifyWithSource(ctx, req)
	if err != nil {
		log.Printf("WARN: triage failed for session %s, keeping current: %v", sess.ID, err)
	}
	sess.SetTriage(result)
	metrics.Triage.WithLabelValues(string(result.Priority), string(source)).Inc()
	s.publish(sess.ID, domain.EventTriageUpdated, result)
}

// reply asks the generator for the next message, falling back to the fixed
// phrase when nothing usable comes back.
func (s *Service) reply(ctx context.Context, sess *domain.Session, message string) string {
	out := strings.TrimSpace(s.generator.Generate(ctx, sess.RecentMessages(s.opts.HistoryWindow), message))
	if out == "" {
		return s.opts.Prompts.Fallback
	}
	return out
}

// sanitize trims the message, drops control characters other than line
// breaks and tabs, and caps it at max runes.
func sanitize(raw string, max int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, raw)
	cleaned = strings.TrimSpace(cleaned)

	if max > 0 {
		runes := []rune(cleaned)
		if len(runes) > max {
			cleaned = strings.TrimSpace(string(runes[:max]))
		}
	}
	return cleaned
}
