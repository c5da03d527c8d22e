package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/pkg/export"
	"github.com/noah-isme/sma-room-schedule/pkg/response"
)

type exportPublisher interface {
	Publish(ctx context.Context, format string) (dto.ExportLink, error)
	Open(token string) (dto.ExportDownload, error)
}

// ExportHandler publishes room exports behind signed download links.
type ExportHandler struct {
	service exportPublisher
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(svc exportPublisher) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Publish godoc
// @Summary Publish a room export snapshot
// @Tags Exports
// @Produce json
// @Security BearerAuth
// @Param format query string false "csv or pdf"
// @Success 201 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /rooms/exports [post]
func (h *ExportHandler) Publish(c *gin.Context) {
	link, err := h.service.Publish(c.Request.Context(), c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Download godoc
// @Summary Download a published export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.service.Open(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, download.Size, download.ContentType, download.File, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	})
}
