package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/models"
	appErrors "github.com/noah-isme/sma-room-schedule/pkg/errors"
	"github.com/noah-isme/sma-room-schedule/pkg/response"
)

type scheduleService interface {
	Status() dto.IndexStatus
	Options() models.FilterOptions
	Reload(ctx context.Context, req dto.ReloadRequest) (dto.ReloadResult, error)
	EnqueueReload(req dto.ReloadRequest) (dto.ReloadJob, error)
	Upload(ctx context.Context, req dto.UploadSourceRequest, actor string) (dto.UploadSourceResult, error)
}

// ScheduleHandler exposes index lifecycle endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Status godoc
// @Summary Schedule index status
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/status [get]
func (h *ScheduleHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Status())
}

// Options godoc
// @Summary Filter dropdown options
// @Tags Schedule
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedule/options [get]
func (h *ScheduleHandler) Options(c *gin.Context) {
	status := h.service.Status()
	response.JSON(c, http.StatusOK, h.service.Options(), responseMeta(c, false, status.Fingerprint))
}

// Reload godoc
// @Summary Rebuild the schedule index
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param async query bool false "Queue the reload instead of waiting"
// @Param payload body dto.ReloadRequest false "Reload request"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /schedule/reload [post]
func (h *ScheduleHandler) Reload(c *gin.Context) {
	var req dto.ReloadRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid reload payload"))
		return
	}
	if req.Reason == "" {
		req.Reason = "api"
	}

	if async, _ := strconv.ParseBool(c.Query("async")); async {
		job, err := h.service.EnqueueReload(req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, job)
		return
	}

	result, err := h.service.Reload(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Upload godoc
// @Summary Upload a timetable CSV into the database source
// @Tags Schedule
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.UploadSourceRequest true "Source upload"
// @Success 201 {object} response.Envelope
// @Router /schedule/sources [post]
func (h *ScheduleHandler) Upload(c *gin.Context) {
	var req dto.UploadSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
		return
	}
	result, err := h.service.Upload(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
