package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/service"
)

// OpenSession creates a new chat session.
// POST /v1/sessions
func (h *Handler) OpenSession(c echo.Context) error {
	snap := h.service.OpenSession(c.Request().Context())
	return c.JSON(http.StatusCreated, domain.OpenSessionResponse{
		SessionID: snap.SessionID,
		Step:      snap.Step,
	})
}

// Chat runs one conversation turn.
// POST /v1/sessions/:session_id/chat
func (h *Handler) Chat(c echo.Context) error {
	sessionID := c.Param("session_id")

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": invalidFields(err),
		})
	}

	resp, err := h.service.Chat(c.Request().Context(), sessionID, req.Message)
	if errors.Is(err, service.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, resp)
}

// GetSession returns the state of a session.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	view, err := h.service.GetSession(c.Request().Context(), c.Param("session_id"))
	if errors.Is(err, service.ErrSessionNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "session not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, view)
}
