package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/karpool/karpool-client/internal/api/dto"
	"github.com/karpool/karpool-client/internal/domain/geo"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
)

// GetGeo handles GET /v1/geo
func (h *Handlers) GetGeo(c *gin.Context) {
	snap := h.Geo.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"selection": snap,
		"fit":       h.Geo.ConsumeFit(),
	})
}

// SetTarget handles PUT /v1/geo/target
func (h *Handlers) SetTarget(c *gin.Context) {
	var req dto.TargetRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.Geo.SetTarget(geo.Target(*req.Target)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Geo.Snapshot())
}

// SetCoordinate handles PUT /v1/geo/coordinate. The marker is named from
// a reverse lookup when one succeeds.
func (h *Handlers) SetCoordinate(c *gin.Context) {
	var req dto.CoordinateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.Location.PinLocation(c.Request.Context(), req.Coordinate()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Geo.Snapshot())
}

// SetName handles PUT /v1/geo/name
func (h *Handlers) SetName(c *gin.Context) {
	var req dto.NameRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.Geo.SetName(req.Name)
	c.JSON(http.StatusOK, h.Geo.Snapshot())
}

// SearchPlaces handles POST /v1/geo/places/search
func (h *Handlers) SearchPlaces(c *gin.Context) {
	var req dto.PlaceSearchRequest
	if !h.bindJSON(c, &req) {
		return
	}

	places, err := h.Location.SearchPlaces(c.Request.Context(), req.Query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"places": places})
}

// SelectPlace handles POST /v1/geo/places/select
func (h *Handlers) SelectPlace(c *gin.Context) {
	var place geo.Place
	if !h.bindJSON(c, &place) {
		return
	}

	if err := h.Location.SelectPlace(place); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Geo.Snapshot())
}

// FetchRoute handles POST /v1/geo/route
func (h *Handlers) FetchRoute(c *gin.Context) {
	points, err := h.Location.FetchRoute(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": points})
}

// ListBookmarks handles GET /v1/geo/bookmarks. ?sync=true reloads them
// from the backend first.
func (h *Handlers) ListBookmarks(c *gin.Context) {
	if c.Query("sync") == "true" {
		if err := h.Location.SyncBookmarks(c.Request.Context()); err != nil {
			h.respondError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"bookmarks": h.Geo.Bookmarks()})
}

// AddBookmark handles POST /v1/geo/bookmarks
func (h *Handlers) AddBookmark(c *gin.Context) {
	var req dto.BookmarkRequest
	if !h.bindJSON(c, &req) {
		return
	}

	err := h.Location.AddBookmark(c.Request.Context(), geo.Bookmark{Name: req.Name, Coordinates: req.Coordinates})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bookmarks": h.Geo.Bookmarks()})
}

// RemoveBookmark handles DELETE /v1/geo/bookmarks/:name
func (h *Handlers) RemoveBookmark(c *gin.Context) {
	if err := h.Location.RemoveBookmark(c.Request.Context(), c.Param("name")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectBookmark handles POST /v1/geo/bookmarks/:name/select
func (h *Handlers) SelectBookmark(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		h.respondError(c, apperrors.ErrBookmarkMissing)
		return
	}

	if err := h.Location.SelectBookmark(name); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.Geo.Snapshot())
}
