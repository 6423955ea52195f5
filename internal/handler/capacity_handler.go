package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clinsched/rotations-api/internal/service"
	appErrors "github.com/clinsched/rotations-api/pkg/errors"
	"github.com/clinsched/rotations-api/pkg/response"
)

// CapacityHandler exposes the read-side capacity queries.
type CapacityHandler struct {
	capacity *service.CapacityService
}

// NewCapacityHandler constructs CapacityHandler.
func NewCapacityHandler(capacity *service.CapacityService) *CapacityHandler {
	return &CapacityHandler{capacity: capacity}
}

// Available godoc
// @Summary Remaining capacity of a speciality slot
// @Tags Capacity
// @Produce json
// @Param id path string true "Rotation speciality ID"
// @Param start_date query string true "Slot start (YYYY-MM-DD)"
// @Param finish_date query string true "Slot finish (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /rotation-specialities/{id}/available-capacity [get]
func (h *CapacityHandler) Available(c *gin.Context) {
	start, err := time.ParseInLocation("2006-01-02", c.Query("start_date"), time.UTC)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid start_date"))
		return
	}
	finish, err := time.ParseInLocation("2006-01-02", c.Query("finish_date"), time.UTC)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid finish_date"))
		return
	}

	remaining, err := h.capacity.Available(c.Request.Context(), c.Param("id"), start, finish)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"available_capacity": remaining}, nil)
}

// UsedDates godoc
// @Summary Fully booked slots per speciality of a rotation
// @Tags Capacity
// @Produce json
// @Param id path string true "Rotation ID"
// @Success 200 {object} response.Envelope
// @Router /rotations/{id}/used-dates [get]
func (h *CapacityHandler) UsedDates(c *gin.Context) {
	used, err := h.capacity.UsedDates(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, used, nil)
}
