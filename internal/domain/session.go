package domain

import (
	"sync"
	"time"
)

// Captured maps collected fields to their values. A missing key means unknown.
type Captured map[Field]string

// Clone returns a copy of c.
func (c Captured) Clone() Captured {
	out := make(Captured, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Complete reports whether every field in required has a value.
func (c Captured) Complete(required []Field) bool {
	for _, f := range required {
		if c[f] == "" {
			return false
		}
	}
	return true
}

// Triage is the classification of the latest exchange.
type Triage struct {
	Priority        Priority `json:"priority"`
	Label           Label    `json:"label"`
	SuggestedAction Action   `json:"suggested_action"`
}

// DefaultTriage is the classification of a session before any message.
func DefaultTriage() Triage {
	return Triage{
		Priority:        PriorityLow,
		Label:           LabelInquiry,
		SuggestedAction: ActionAutomatic,
	}
}

// TimelineEvent is a single entry of a session's history.
type TimelineEvent struct {
	Type  TimelineType `json:"type"`
	Label string       `json:"label"`
	Ts    time.Time    `json:"ts"`
}

// Turn is a single message of the conversation.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	Ts   time.Time `json:"ts"`
}

// Session is the unit of conversation state. Every accessor takes the session's
// own lock, so individual reads and writes are atomic relative to each other.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu             sync.Mutex
	updatedAt      time.Time
	step           Step
	captured       Captured
	triage         Triage
	timeline       []TimelineEvent
	messages       []Turn
	assistantCount int
}

// NewSession returns a session in the greeting step with default triage.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now,
		updatedAt: now,
		step:      StepGreeting,
		captured:  make(Captured),
		triage:    DefaultTriage(),
	}
}

// Touch refreshes the update timestamp. It never moves backwards.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.updatedAt) {
		s.updatedAt = now
	}
}

// UpdatedAt returns the time of the last inbound turn.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// Step returns the current conversation stage.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// SetStep moves the session to next. Backward or same-step transitions are
// ignored and reported as false.
func (s *Session) SetStep(next Step) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next.rank() <= s.step.rank() {
		return false
	}
	s.step = next
	return true
}

// Field returns the captured value of f and whether it is known.
func (s *Session) Field(f Field) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.captured[f]
	return v, ok
}

// SetField stores value for f and reports whether the stored value changed.
func (s *Session) SetField(f Field, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.captured[f]; ok && cur == value {
		return false
	}
	s.captured[f] = value
	return true
}

// Captured returns a copy of the captured fields.
func (s *Session) Captured() Captured {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured.Clone()
}

// Triage returns the current classification.
func (s *Session) Triage() Triage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triage
}

// SetTriage overwrites the classification in full.
func (s *Session) SetTriage(t Triage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triage = t
}

// AppendTimeline appends ev to the timeline.
func (s *Session) AppendTimeline(ev TimelineEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeline = append(s.timeline, ev)
}

// Timeline returns a copy of the timeline in append order.
func (s *Session) Timeline() []TimelineEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TimelineEvent, len(s.timeline))
	copy(out, s.timeline)
	return out
}

// AppendMessage appends a conversation turn.
func (s *Session) AppendMessage(t Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, t)
}

// RecentMessages returns at most n of the latest turns, oldest first.
func (s *Session) RecentMessages(n int) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil
	}
	start := len(s.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Turn, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

// IncAssistant counts a system reply and returns the new total.
func (s *Session) IncAssistant() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assistantCount++
	return s.assistantCount
}

// AssistantCount returns the number of system replies issued.
func (s *Session) AssistantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.assistantCount
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	SessionID      string          `json:"session_id"`
	Step           Step            `json:"step"`
	Captured       Captured        `json:"captured"`
	Triage         Triage          `json:"triage"`
	Timeline       []TimelineEvent `json:"timeline"`
	Messages       []Turn          `json:"messages,omitempty"`
	AssistantCount int             `json:"assistant_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Snapshot copies the full session state under one lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	timeline := make([]TimelineEvent, len(s.timeline))
	copy(timeline, s.timeline)
	messages := make([]Turn, len(s.messages))
	copy(messages, s.messages)
	return Snapshot{
		SessionID:      s.ID,
		Step:           s.step,
		Captured:       s.captured.Clone(),
		Triage:         s.triage,
		Timeline:       timeline,
		Messages:       messages,
		AssistantCount: s.assistantCount,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.updatedAt,
	}
}
