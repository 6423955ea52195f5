package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinsched/rotations-api/internal/models"
	"github.com/clinsched/rotations-api/internal/service"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
	"github.com/clinsched/rotations-api/pkg/response"
)

// RotationHandler exposes rotation lifecycle and listing endpoints.
type RotationHandler struct {
	rotations *service.RotationService
	capacity  *service.CapacityService
}

// NewRotationHandler constructs RotationHandler.
func NewRotationHandler(rotations *service.RotationService, capacity *service.CapacityService) *RotationHandler {
	return &RotationHandler{rotations: rotations, capacity: capacity}
}

// Create godoc
// @Summary Create a rotation with its specialities
// @Tags Rotations
// @Accept json
// @Produce json
// @Param payload body service.CreateRotationRequest true "Rotation payload"
// @Success 201 {object} response.Envelope
// @Router /rotations [post]
func (h *RotationHandler) Create(c *gin.Context) {
	var req service.CreateRotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.rotations.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List rotations
// @Tags Rotations
// @Produce json
// @Param group_id query string false "Filter by group"
// @Param facility_id query string false "Filter by facility"
// @Param start_date query string false "Filter by exact start date"
// @Param finish_date query string false "Filter by exact finish date"
// @Param semester query int false "Filter by semester"
// @Param state query bool false "Filter by state"
// @Param page query int false "Page; enables pagination"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rotations [get]
func (h *RotationHandler) List(c *gin.Context) {
	filter := models.RotationFilter{
		GroupID:    c.Query("group_id"),
		FacilityID: c.Query("facility_id"),
	}
	if raw := c.Query("start_date"); raw != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
			filter.StartDate = &parsed
		}
	}
	if raw := c.Query("finish_date"); raw != "" {
		if parsed, err := time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
			filter.FinishDate = &parsed
		}
	}
	if semester, err := strconv.Atoi(c.Query("semester")); err == nil {
		filter.Semester = semester
	}
	if raw := c.Query("state"); raw != "" {
		if state, err := strconv.ParseBool(raw); err == nil {
			filter.State = &state
		}
	}

	if c.Query("page") == "" {
		rotations, err := h.rotations.List(c.Request.Context(), filter)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, rotations, nil)
		return
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		filter.PageSize = size
	}
	rotations, pagination, err := h.rotations.ListPaginated(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rotations, pagination)
}

// Get godoc
// @Summary Get a rotation with specialities and dates
// @Tags Rotations
// @Produce json
// @Param id path string true "Rotation ID"
// @Success 200 {object} response.Envelope
// @Router /rotations/{id} [get]
func (h *RotationHandler) Get(c *gin.Context) {
	detail, err := h.rotations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Update a rotation and diff its specialities
// @Tags Rotations
// @Accept json
// @Produce json
// @Param id path string true "Rotation ID"
// @Param payload body service.UpdateRotationRequest true "Rotation payload"
// @Success 200 {object} response.Envelope
// @Router /rotations/{id} [put]
func (h *RotationHandler) Update(c *gin.Context) {
	var req service.UpdateRotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.rotations.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Remove a rotation and its children
// @Tags Rotations
// @Produce json
// @Param id path string true "Rotation ID"
// @Success 200 {object} response.Envelope
// @Router /rotations/{id} [delete]
func (h *RotationHandler) Delete(c *gin.Context) {
	result, err := h.rotations.Remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Partition godoc
// @Summary Weekly slot partition of a rotation window
// @Tags Rotations
// @Produce json
// @Param id path string true "Rotation ID"
// @Success 200 {object} response.Envelope
// @Router /rotations/{id}/partition [get]
func (h *RotationHandler) Partition(c *gin.Context) {
	slots, err := h.capacity.Partition(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// GroupRotations godoc
// @Summary Rotations of a group
// @Tags Rotations
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/rotations [get]
func (h *RotationHandler) GroupRotations(c *gin.Context) {
	rotations, err := h.rotations.GroupRotations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rotations, nil)
}

// FacilityUsedWindows godoc
// @Summary Occupied upcoming windows at a facility
// @Tags Rotations
// @Produce json
// @Param id path string true "Facility ID"
// @Success 200 {object} response.Envelope
// @Router /facilities/{id}/used-dates [get]
func (h *RotationHandler) FacilityUsedWindows(c *gin.Context) {
	windows, err := h.rotations.UsedFacilityWindows(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}
