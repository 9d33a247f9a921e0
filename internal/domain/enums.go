// Package domain defines the core domain models for the intake server.
package domain

// Step is the conversation stage of a session.
type Step string

const (
	StepGreeting Step = "greeting"
	StepReason   Step = "reason"
	StepDone     Step = "done"
)

// rank orders steps so transitions can be checked for forward progression.
func (s Step) rank() int {
	switch s {
	case StepGreeting:
		return 0
	case StepReason:
		return 1
	case StepDone:
		return 2
	default:
		return -1
	}
}

// Field is a structured value collected from the patient.
type Field string

const (
	FieldName          Field = "name"
	FieldReason        Field = "reason"
	FieldCity          Field = "city"
	FieldPreferredTime Field = "preferred_time"
)

// RequiredFields is the default set of fields a session must capture.
var RequiredFields = []Field{FieldName, FieldReason, FieldCity, FieldPreferredTime}

// Label returns the human readable form used in timeline entries.
func (f Field) Label() string {
	if f == FieldPreferredTime {
		return "preferred time"
	}
	return string(f)
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool {
	switch f {
	case FieldName, FieldReason, FieldCity, FieldPreferredTime:
		return true
	}
	return false
}

// Priority is the urgency of a triage result.
type Priority string

const (
	PriorityHigh   Priority = "Alta"
	PriorityMedium Priority = "Media"
	PriorityLow    Priority = "Baja"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// Label is the category of a triage result.
type Label string

const (
	LabelInquiry     Label = "Consulta"
	LabelAppointment Label = "Potencial cita"
)

// Valid reports whether l is a known label.
func (l Label) Valid() bool {
	return l == LabelInquiry || l == LabelAppointment
}

// Action is the suggested follow-up of a triage result.
type Action string

const (
	ActionAutomatic Action = "Automatico"
	ActionEscalate  Action = "Derivar a equipo"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionAutomatic || a == ActionEscalate
}

// TimelineType categorizes timeline entries.
type TimelineType string

const (
	TimelineSession TimelineType = "session"
	TimelineSystem  TimelineType = "system"
	TimelinePatient TimelineType = "patient"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RolePatient Role = "patient"
	RoleSystem  Role = "system"
)

// EventName is the name of a push notification.
type EventName string

const (
	EventTimeline       EventName = "timeline.event"
	EventPatientUpdated EventName = "patient.updated"
	EventTriageUpdated  EventName = "triage.updated"
)

// Timeline labels.
const (
	LabelSessionStarted     = "session started"
	LabelGreetingSent       = "greeting sent"
	LabelMessageReceived    = "message received"
	LabelDataComplete       = "data complete"
	LabelConversationClosed = "conversation closed"
)
