package v1

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
	"github.com/autonomia2025/autonomia-suite-landing/internal/service"
)

// CaptureLead stores a contact request and notifies the team.
// POST /v1/leads
func (h *Handler) CaptureLead(c echo.Context) error {
	var req domain.LeadRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": invalidFields(err),
		})
	}

	resp, err := h.service.CaptureLead(c.Request().Context(), req)
	if errors.Is(err, service.ErrMailDelivery) {
		return c.JSON(http.StatusBadGateway, map[string]interface{}{
			"error":   "failed to send notification",
			"lead_id": resp.LeadID,
		})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusAccepted, resp)
}

// invalidFields lists the JSON names of the fields that failed validation.
func invalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}
