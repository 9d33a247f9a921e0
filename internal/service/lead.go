package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/autonomia2025/autonomia-suite-landing/internal/adapter/mailer"
	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/metrics"
)

// ErrMailDelivery is returned when the lead was stored but the notification
// email could not be sent.
var ErrMailDelivery = errors.New("lead notification not delivered")

// CaptureLead stores a lead and emails the notification recipients. On mail
// failure the response is still returned together with ErrMailDelivery.
func (s *Service) CaptureLead(ctx context.Context, req domain.LeadRequest) (*domain.LeadResponse, error) {
	lead := &domain.Lead{
		LeadID:    uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Company:   strings.TrimSpace(req.Company),
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: s.now(),
	}

	if s.store != nil {
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.PersistTimeout)
		if err := s.store.CreateLead(storeCtx, lead); err != nil {
			log.Printf("WARN: failed to store lead %s: %v", lead.LeadID, err)
			metrics.CollaboratorFailures.WithLabelValues(metrics.CollaboratorPersist).Inc()
		}
		cancel()
	}

	resp := &domain.LeadResponse{LeadID: lead.LeadID}
	if s.mailer == nil || len(s.opts.LeadNotifyTo) == 0 {
		log.Printf("Lead %s captured; no notification recipients configured", lead.LeadID)
		return resp, nil
	}

	mailCtx, cancel := context.WithTimeout(ctx, s.opts.MailTimeout)
	defer cancel()

	if err := s.mailer.Send(mailCtx, leadMessage(s.opts.LeadNotifyTo, lead)); err != nil {
		log.Printf("ERROR: failed to email lead %s: %v", lead.LeadID, err)
		metrics.CollaboratorFailures.WithLabelValues(metrics.CollaboratorMail).Inc()
		return resp, fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}
	resp.Emailed = true
	return resp, nil
}

func leadMessage(to []string, lead *domain.Lead) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Nombre: %s\n", lead.Name)
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	if lead.Phone != "" {
		fmt.Fprintf(&b, "Teléfono: %s\n", lead.Phone)
	}
	if lead.Company != "" {
		fmt.Fprintf(&b, "Empresa: %s\n", lead.Company)
	}
	if lead.Message != "" {
		fmt.Fprintf(&b, "\n%s\n", lead.Message)
	}
	fmt.Fprintf(&b, "\nID: %s\n", lead.LeadID)

	return mailer.Message{
		To:      to,
		Subject: "Nuevo lead: " + lead.Name,
		Body:    b.String(),
	}
}

func splitRecipients(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
