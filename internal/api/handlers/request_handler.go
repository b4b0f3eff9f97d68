package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/karpool/karpool-client/internal/api/dto"
	"github.com/karpool/karpool-client/internal/service/prompt"
)

// JoinTrip handles POST /v1/trips/:id/join
func (h *Handlers) JoinTrip(c *gin.Context) {
	tripID, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	var req dto.JoinRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	if err := h.Lifecycle.SubmitJoinRequest(c.Request.Context(), tripID, req.PassengerID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Lifecycle.View(tripID))
}

// ListRequests handles GET /v1/trips/:id/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	tripID, ok := h.paramID(c, "id")
	if !ok {
		return
	}

	if err := h.Lifecycle.ListRequests(c.Request.Context(), tripID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": h.Lifecycle.Requests()})
}

// AcceptRequest handles POST /v1/trips/:id/requests/:requestId/accept
func (h *Handlers) AcceptRequest(c *gin.Context) {
	h.respondToRequest(c, h.Lifecycle.Accept)
}

// RejectRequest handles POST /v1/trips/:id/requests/:requestId/reject
func (h *Handlers) RejectRequest(c *gin.Context) {
	h.respondToRequest(c, h.Lifecycle.Reject)
}

func (h *Handlers) respondToRequest(c *gin.Context, action func(ctx context.Context, tripID, requestID int64) error) {
	tripID, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	requestID, ok := h.paramID(c, "requestId")
	if !ok {
		return
	}
	ctx, ok := h.confirmed(c)
	if !ok {
		return
	}

	if err := action(ctx, tripID, requestID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Lifecycle.View(tripID))
}

// StartTrip handles POST /v1/trips/:id/start
func (h *Handlers) StartTrip(c *gin.Context) {
	h.tripAction(c, h.Lifecycle.StartTrip)
}

// CompleteTrip handles POST /v1/trips/:id/complete
func (h *Handlers) CompleteTrip(c *gin.Context) {
	h.tripAction(c, h.Lifecycle.CompleteTrip)
}

func (h *Handlers) tripAction(c *gin.Context, action func(ctx context.Context, tripID int64) error) {
	tripID, ok := h.paramID(c, "id")
	if !ok {
		return
	}
	ctx, ok := h.confirmed(c)
	if !ok {
		return
	}

	if err := action(ctx, tripID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Lifecycle.View(tripID))
}

// confirmed attaches the body's "confirm" answer to the request context
func (h *Handlers) confirmed(c *gin.Context) (context.Context, bool) {
	var req dto.ConfirmRequest
	if !h.bindOptionalJSON(c, &req) {
		return nil, false
	}
	return prompt.WithConfirmation(c.Request.Context(), req.Confirm), true
}
