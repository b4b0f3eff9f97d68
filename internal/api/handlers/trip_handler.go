package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/karpool/karpool-client/internal/api/dto"
	"github.com/karpool/karpool-client/internal/service/search"
	"github.com/karpool/karpool-client/internal/store"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// GetTrips handles GET /v1/trips
func (h *Handlers) GetTrips(c *gin.Context) {
	c.JSON(http.StatusOK, h.Trips.View())
}

// SearchTrips handles POST /v1/trips/search. An empty body searches with
// the current selection.
func (h *Handlers) SearchTrips(c *gin.Context) {
	var req dto.SearchRequest
	if !h.bindOptionalJSON(c, &req) {
		return
	}

	var err error
	if req == (dto.SearchRequest{}) {
		err = h.Search.SearchFromSelection(c.Request.Context())
	} else {
		err = h.Search.Search(c.Request.Context(), h.criteria(req))
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Trips.View())
}

// criteria fills the fields req leaves out from the current selection
func (h *Handlers) criteria(req dto.SearchRequest) search.Criteria {
	origin, _ := h.Geo.Origin()
	destination, _ := h.Geo.Destination()
	cr := search.Criteria{
		Origin:      origin,
		Destination: destination,
		Date:        req.Date,
		Time:        req.Time,
	}
	if req.LocationMarker != nil {
		cr.Origin = *req.LocationMarker
	}
	if req.DestinationMarker != nil {
		cr.Destination = *req.DestinationMarker
	}
	if cr.Date == "" {
		if dates := h.Schedule.Dates(); len(dates) == 1 {
			cr.Date = dates[0]
		}
	}
	if cr.Time == "" {
		cr.Time = h.Schedule.Time().Format(store.TimeLayout)
	}
	return cr
}

// SelectTrip handles POST /v1/trips/select
func (h *Handlers) SelectTrip(c *gin.Context) {
	var req dto.SelectTripRequest
	if !h.bindJSON(c, &req) {
		return
	}

	switch {
	case req.Trip != nil:
		h.Search.SelectTrip(*req.Trip)
	case req.TripID != nil:
		if _, err := h.Search.Select(*req.TripID); err != nil {
			h.respondError(c, err)
			return
		}
	default:
		h.respondError(c, apperrors.ErrNoTripSelected)
		return
	}

	selected, _ := h.Trips.Selected()
	c.JSON(http.StatusOK, gin.H{
		"trip": selected,
		"view": h.Lifecycle.View(selected.ID),
	})
}

// GetTripView handles GET /v1/trips/:id
func (h *Handlers) GetTripView(c *gin.Context) {
	tripID, ok := h.paramID(c, "id")
	if !ok {
		return
	}

	t, found := h.Trips.Find(tripID)
	if !found {
		h.respondError(c, apperrors.ErrTripNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trip": t,
		"view": h.Lifecycle.View(tripID),
	})
}

// PublishTrip handles POST /v1/trips/publish
func (h *Handlers) PublishTrip(c *gin.Context) {
	var req dto.PublishRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.Search.Publish(c.Request.Context(), search.PublishInput{
		Stops: req.Stops,
		Price: req.Price,
		Seats: req.Seats,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dates": h.Schedule.Dates()})
}

// UpcomingTrips handles GET /v1/trips/upcoming
func (h *Handlers) UpcomingTrips(c *gin.Context) {
	if err := h.Search.LoadUpcoming(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upcoming": h.Trips.Upcoming()})
}
