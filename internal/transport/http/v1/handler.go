// Package v1 provides the public HTTP handlers of the intake server.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/autonomia2025/autonomia-suite-landing/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the v1 routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation API
	e.POST("/v1/sessions", h.OpenSession)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.POST("/v1/sessions/:session_id/chat", h.Chat)

	// Lead capture
	e.POST("/v1/leads", h.CaptureLead)
}
