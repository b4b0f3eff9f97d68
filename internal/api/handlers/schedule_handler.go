package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/karpool/karpool-client/internal/api/dto"
	"github.com/karpool/karpool-client/internal/store"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// GetSchedule handles GET /v1/schedule
func (h *Handlers) GetSchedule(c *gin.Context) {
	c.JSON(http.StatusOK, h.Schedule.Snapshot())
}

// ToggleDate handles POST /v1/schedule/dates
func (h *Handlers) ToggleDate(c *gin.Context) {
	var req dto.DateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.Schedule.Toggle(req.Date); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Schedule.Snapshot())
}

// SetTime handles PUT /v1/schedule/time
func (h *Handlers) SetTime(c *gin.Context) {
	var req dto.TimeRequest
	if !h.bindJSON(c, &req) {
		return
	}

	clock, err := time.Parse(store.TimeLayout, req.Time)
	if err != nil {
		h.respondError(c, apperrors.BadRequest("Time must use the HH:mm format", err))
		return
	}

	now := time.Now()
	h.Schedule.SetTime(time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location()))
	c.JSON(http.StatusOK, h.Schedule.Snapshot())
}

// ResetSchedule handles DELETE /v1/schedule
func (h *Handlers) ResetSchedule(c *gin.Context) {
	h.Schedule.Reset()
	c.JSON(http.StatusOK, h.Schedule.Snapshot())
}
