package service

import "github.com/autonomia2025/autonomia-suite-landing/internal/domain"

// record appends a timeline entry and then announces it to subscribers.
func (s *Service) record(sess *domain.Session, typ domain.TimelineType, label string) domain.TimelineEvent {
	ev := domain.TimelineEvent{Type: typ, Label: label, Ts: s.now()}
	sess.AppendTimeline(ev)
	s.publish(sess.ID, domain.EventTimeline, ev)
	return ev
}

func (s *Service) publish(sessionID string, event domain.EventName, payload interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(sessionID, event, payload)
}
