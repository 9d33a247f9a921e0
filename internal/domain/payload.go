package domain

import (
	"encoding/json"
	"time"
)

// Classification holds the optional triage fields returned by the analysis model.
type Classification struct {
	Priority        *Priority `json:"priority,omitempty"`
	Label           *Label    `json:"label,omitempty"`
	SuggestedAction *Action   `json:"suggested_action,omitempty"`
}

// Extraction is the normalized result of a field extraction call.
type Extraction struct {
	Fields         Captured
	Classification Classification
}

// ChatRequest is the body of a chat turn.
type ChatRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

// ChatResponse is returned for every chat turn.
type ChatResponse struct {
	Reply    string   `json:"reply"`
	Step     Step     `json:"step"`
	Captured Captured `json:"captured"`
}

// OpenSessionResponse is returned when a session is created.
type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
	Step      Step   `json:"step"`
}

// SessionView is the public read model of a session.
type SessionView struct {
	SessionID string          `json:"session_id"`
	Step      Step            `json:"step"`
	Captured  Captured        `json:"captured"`
	Triage    Triage          `json:"triage"`
	Timeline  []TimelineEvent `json:"timeline"`
}

// PatientUpdatedPayload is the batched set of fields changed in one turn.
type PatientUpdatedPayload map[Field]string

// SessionRecord is the denormalized persisted form of a session.
type SessionRecord struct {
	SessionID string          `json:"session_id"`
	Step      Step            `json:"step"`
	Captured  json.RawMessage `json:"captured"`
	Triage    json.RawMessage `json:"triage"`
	Timeline  json.RawMessage `json:"timeline"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewSessionRecord encodes a snapshot for persistence.
func NewSessionRecord(s Snapshot) (*SessionRecord, error) {
	captured, err := json.Marshal(s.Captured)
	if err != nil {
		return nil, err
	}
	triage, err := json.Marshal(s.Triage)
	if err != nil {
		return nil, err
	}
	timeline, err := json.Marshal(s.Timeline)
	if err != nil {
		return nil, err
	}
	return &SessionRecord{
		SessionID: s.SessionID,
		Step:      s.Step,
		Captured:  captured,
		Triage:    triage,
		Timeline:  timeline,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}, nil
}

// LeadRequest is the body of a lead-capture submission.
type LeadRequest struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=40"`
	Company string `json:"company,omitempty" validate:"omitempty,max=120"`
	Message string `json:"message,omitempty" validate:"omitempty,max=2000"`
}

// Lead is a captured contact request.
type Lead struct {
	LeadID    string    `json:"lead_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadResponse is returned after a lead submission.
type LeadResponse struct {
	LeadID  string `json:"lead_id"`
	Emailed bool   `json:"emailed"`
}
