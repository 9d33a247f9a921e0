package service

import (
	"context"
	"log"
	"time"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/metrics"
)

// OpenSession creates a session and persists its initial state.
func (s *Service) OpenSession(ctx context.Context) *domain.Snapshot {
	sess := s.sessions.Create()
	metrics.SessionsOpened.Inc()
	s.persist(ctx, sess)

	snap := sess.Snapshot()
	return &snap
}

// Chat runs one turn for the session. Turns of the same session are
// serialized.
func (s *Service) Chat(ctx context.Context, sessionID, message string) (*domain.ChatResponse, error) {
	start := time.Now()

	sess, release, ok := s.sessions.Acquire(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	defer release()

	reply := s.advance(ctx, sess, message)

	now := s.now()
	if text := sanitize(message, s.opts.MaxMessageChars); text != "" {
		sess.AppendMessage(domain.Turn{Role: domain.RolePatient, Text: text, Ts: now})
	}
	sess.AppendMessage(domain.Turn{Role: domain.RoleSystem, Text: reply, Ts: now})

	if sess.IncAssistant() >= s.opts.MaxAssistantTurns && sess.SetStep(domain.StepDone) {
		s.record(sess, domain.TimelineSystem, domain.LabelConversationClosed)
	}

	s.persist(ctx, sess)

	step := sess.Step()
	metrics.Turns.WithLabelValues(string(step)).Inc()
	metrics.TurnDuration.Observe(time.Since(start).Seconds())

	return &domain.ChatResponse{
		Reply:    reply,
		Step:     step,
		Captured: sess.Captured(),
	}, nil
}

// GetSession returns the public view of a session.
func (s *Service) GetSession(_ context.Context, sessionID string) (*domain.SessionView, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	snap := sess.Snapshot()
	return &domain.SessionView{
		SessionID: snap.SessionID,
		Step:      snap.Step,
		Captured:  snap.Captured,
		Triage:    snap.Triage,
		Timeline:  snap.Timeline,
	}, nil
}

// SessionExists reports whether sessionID is live.
func (s *Service) SessionExists(sessionID string) bool {
	_, ok := s.sessions.Get(sessionID)
	return ok
}

// persist upserts the session. Failures are logged and never returned.
func (s *Service) persist(ctx context.Context, sess *domain.Session) {
	if s.store == nil {
		return
	}

	rec, err := domain.NewSessionRecord(sess.Snapshot())
	if err != nil {
		log.Printf("WARN: failed to encode session %s: %v", sess.ID, err)
		metrics.CollaboratorFailures.WithLabelValues(metrics.CollaboratorPersist).Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
	defer cancel()

	if err := s.store.UpsertSession(ctx, rec); err != nil {
		log.Printf("WARN: failed to persist session %s: %v", sess.ID, err)
		metrics.CollaboratorFailures.WithLabelValues(metrics.CollaboratorPersist).Inc()
	}
}
