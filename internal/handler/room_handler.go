package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/models"
	"github.com/noah-isme/sma-room-schedule/pkg/export"
	"github.com/noah-isme/sma-room-schedule/pkg/response"
)

type roomService interface {
	Status() dto.IndexStatus
	Rooms(ctx context.Context, criteria models.FilterCriteria) ([]dto.RoomVisibility, bool, error)
	Room(name string) (models.RoomSchedule, error)
	Summary(ctx context.Context, name string) (models.RoomSummary, bool, error)
	FilteredStudents(name string, criteria models.FilterCriteria) (dto.FilteredStudents, error)
	Stats(name string) dto.RoomStats
	Export(ctx context.Context, format string) ([]byte, export.Format, error)
}

// RoomHandler serves room queries.
type RoomHandler struct {
	service roomService
}

// NewRoomHandler constructs handler.
func NewRoomHandler(svc roomService) *RoomHandler {
	return &RoomHandler{service: svc}
}

// List godoc
// @Summary List rooms with their visibility under the filter
// @Tags Rooms
// @Produce json
// @Param time query string false "Hour label, e.g. 13h"
// @Param specialization query string false "Specialization"
// @Param transport query string false "Transport"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rooms, hit, err := h.service.Rooms(c.Request.Context(), criteria)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, responseMeta(c, hit, h.service.Status().Fingerprint))
}

// Get godoc
// @Summary Room schedule
// @Tags Rooms
// @Produce json
// @Param name path string true "Room name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rooms/{name} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.service.Room(c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room)
}

// Summary godoc
// @Summary Info panel summary of a room
// @Tags Rooms
// @Produce json
// @Param name path string true "Room name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rooms/{name}/summary [get]
func (h *RoomHandler) Summary(c *gin.Context) {
	summary, hit, err := h.service.Summary(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, responseMeta(c, hit, h.service.Status().Fingerprint))
}

// Students godoc
// @Summary Students of a room matching the filter
// @Tags Rooms
// @Produce json
// @Param name path string true "Room name"
// @Param time query string false "Hour label"
// @Param specialization query string false "Specialization"
// @Param transport query string false "Transport"
// @Success 200 {object} response.Envelope
// @Router /rooms/{name}/students [get]
func (h *RoomHandler) Students(c *gin.Context) {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	students, err := h.service.FilteredStudents(c.Param("name"), criteria)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students)
}

// Stats godoc
// @Summary Specialization and transport tallies of a room
// @Tags Rooms
// @Produce json
// @Param name path string true "Room name"
// @Success 200 {object} response.Envelope
// @Router /rooms/{name}/stats [get]
func (h *RoomHandler) Stats(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Stats(c.Param("name")))
}

// Export godoc
// @Summary Export room occupancy
// @Tags Rooms
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /rooms/export [get]
func (h *RoomHandler) Export(c *gin.Context) {
	body, format, err := h.service.Export(c.Request.Context(), c.DefaultQuery("format", string(export.FormatCSV)))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("rooms-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	response.Attachment(c, filename, format.ContentType(), body)
}
