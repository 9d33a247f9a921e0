// Package service implements the intake conversation: session lifecycle,
// the turn state machine, triage, persistence and lead capture.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/autonomia2025/autonomia-suite-landing/internal/adapter/mailer"
	"github.com/autonomia2025/autonomia-suite-landing/internal/config"
	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/repository"
	"github.com/autonomia2025/autonomia-suite-landing/internal/session"
	"github.com/autonomia2025/autonomia-suite-landing/internal/triage"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// Publisher delivers session events to push channel subscribers.
type Publisher interface {
	Publish(sessionID string, event domain.EventName, payload interface{})
}

// Extractor pulls fields and classification out of a patient message. A nil
// result means the call failed.
type Extractor interface {
	Extract(ctx context.Context, captured domain.Captured, message string) *domain.Extraction
}

// Generator produces conversational replies and never fails.
type Generator interface {
	Generate(ctx context.Context, history []domain.Turn, message string) string
}

// Options are the tunables of the conversation.
type Options struct {
	MaxAssistantTurns int
	HistoryWindow     int
	MaxMessageChars   int
	RequiredFields    []domain.Field
	PersistTimeout    time.Duration
	MailTimeout       time.Duration
	SweepInterval     time.Duration
	LeadNotifyTo      []string
	Prompts           config.Prompts
}

// DefaultOptions returns the stock conversation settings.
func DefaultOptions() Options {
	return Options{
		MaxAssistantTurns: 10,
		HistoryWindow:     8,
		MaxMessageChars:   1000,
		RequiredFields:    domain.RequiredFields,
		PersistTimeout:    3 * time.Second,
		MailTimeout:       10 * time.Second,
		SweepInterval:     time.Minute,
		Prompts:           config.DefaultPrompts(),
	}
}

// OptionsFromConfig maps the process configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	opts.MaxAssistantTurns = cfg.MaxAssistantTurns
	opts.HistoryWindow = cfg.HistoryWindow
	opts.MaxMessageChars = cfg.MaxMessageChars
	opts.PersistTimeout = cfg.PersistTimeout
	opts.SweepInterval = cfg.SessionSweepInterval
	opts.Prompts = cfg.Prompts
	if cfg.LeadNotifyTo != "" {
		opts.LeadNotifyTo = splitRecipients(cfg.LeadNotifyTo)
	}
	return opts
}

// Service coordinates sessions and their collaborators.
type Service struct {
	sessions   *session.Store
	store      repository.Store
	publisher  Publisher
	extractor  Extractor
	generator  Generator
	classifier *triage.Chain
	mailer     mailer.Mailer
	opts       Options
	now        func() time.Time
}

// New creates a Service. store and m may be nil, which disables persistence
// and lead email respectively.
func New(sessions *session.Store, store repository.Store, publisher Publisher, extractor Extractor, generator Generator, classifier *triage.Chain, m mailer.Mailer, opts Options) *Service {
	return &Service{
		sessions:   sessions,
		store:      store,
		publisher:  publisher,
		extractor:  extractor,
		generator:  generator,
		classifier: classifier,
		mailer:     m,
		opts:       opts,
		now:        time.Now,
	}
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	return s.sessions.Len()
}
