package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/pkg/response"
)

type studentService interface {
	StudentSchedule(name string) dto.StudentSchedule
}

// StudentHandler serves per-student lookups.
type StudentHandler struct {
	service studentService
}

// NewStudentHandler constructs handler.
func NewStudentHandler(svc studentService) *StudentHandler {
	return &StudentHandler{service: svc}
}

// Schedule godoc
// @Summary Hours a student attends
// @Tags Students
// @Produce json
// @Param name path string true "Student name"
// @Success 200 {object} response.Envelope
// @Router /students/{name}/schedule [get]
func (h *StudentHandler) Schedule(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.StudentSchedule(c.Param("name")))
}
