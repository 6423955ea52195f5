package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinsched/rotations-api/internal/service"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
	"github.com/clinsched/rotations-api/pkg/response"
)

// AssignmentHandler exposes student date placement endpoints.
type AssignmentHandler struct {
	assignments *service.AssignmentService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments}
}

// Assign godoc
// @Summary Assign or reassign a student's weekly slots
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignStudentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /rotation-dates [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req service.AssignStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.assignments.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// StudentDates godoc
// @Summary Placements a student holds on a rotation
// @Tags Assignments
// @Produce json
// @Param id path string true "Rotation ID"
// @Param studentId path string true "Student user ID"
// @Success 200 {object} response.Envelope
// @Router /rotations/{id}/students/{studentId}/dates [get]
func (h *AssignmentHandler) StudentDates(c *gin.Context) {
	dates, err := h.assignments.StudentDates(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dates, nil)
}
