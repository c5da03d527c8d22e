package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
	"github.com/noah-isme/sma-room-schedule/pkg/response"
)

type interactionService interface {
	Record(ctx context.Context, client string, req dto.RecordInteractionRequest) (dto.RecordInteractionResult, error)
	Report(limit int) dto.InteractionReport
}

// InteractionHandler records and reports user interactions.
type InteractionHandler struct {
	service interactionService
}

// NewInteractionHandler constructs handler.
func NewInteractionHandler(svc interactionService) *InteractionHandler {
	return &InteractionHandler{service: svc}
}

// Record godoc
// @Summary Record an interaction
// @Tags Interactions
// @Accept json
// @Produce json
// @Param X-Client-ID header string false "Client identifier for the cooldown"
// @Param payload body dto.RecordInteractionRequest true "Interaction"
// @Success 202 {object} response.Envelope
// @Router /interactions [post]
func (h *InteractionHandler) Record(c *gin.Context) {
	var req dto.RecordInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid interaction payload"))
		return
	}
	result, err := h.service.Record(c.Request.Context(), clientID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, result)
}

// Report godoc
// @Summary Recent interactions and statistics
// @Tags Interactions
// @Produce json
// @Param limit query int false "Recent entries to return"
// @Success 200 {object} response.Envelope
// @Router /interactions [get]
func (h *InteractionHandler) Report(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	response.JSON(c, http.StatusOK, h.service.Report(limit))
}
