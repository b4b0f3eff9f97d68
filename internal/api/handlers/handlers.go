package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/karpool/karpool-client/internal/service/auth"
	"github.com/karpool/karpool-client/internal/service/lifecycle"
	"github.com/karpool/karpool-client/internal/service/location"
	"github.com/karpool/karpool-client/internal/service/search"
	"github.com/karpool/karpool-client/internal/store"
	"github.com/karpool/karpool-client/pkg/chat"
	apperrors "github.com/karpool/karpool-client/pkg/errors"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/websocket"
)

// Handlers holds all handler dependencies
type Handlers struct {
	Auth      *auth.Service
	Lifecycle *lifecycle.Service
	Search    *search.Service
	Location  *location.Service
	Chat      chat.Store

	Session  *store.Session
	Geo      *store.Geo
	Schedule *store.Schedule
	Trips    *store.Trips
	Requests *store.Requests

	Hub      *websocket.Hub
	Upgrader gorilla.Upgrader
	Logger   *logger.Logger
}

// errorResponse is the body of every failed call
type errorResponse struct {
	Error          *apperrors.AppError `json:"error"`
	// UpstreamStatus is the backend's status when the backend refused the call
	UpstreamStatus int                 `json:"upstreamStatus,omitempty"`
}

// respondError writes err with the status its AppError carries. Backend
// refusals are reported as 502 with the backend status alongside.
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)

	status := appErr.Status
	resp := errorResponse{Error: appErr}
	switch appErr.Code {
	case apperrors.CodeUpstream:
		status = http.StatusBadGateway
		resp.UpstreamStatus = appErr.Status
	case apperrors.CodeInternal:
		h.Logger.Error("Unhandled error", logger.Err(err), logger.String("path", c.FullPath()))
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, resp)
}

// bindJSON binds the body and answers 400 on failure
func (h *Handlers) bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		h.respondError(c, apperrors.BadRequest("Invalid request payload", err))
		return false
	}
	return true
}

// bindOptionalJSON binds the body when there is one
func (h *Handlers) bindOptionalJSON(c *gin.Context, v interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return h.bindJSON(c, v)
}

// paramID parses the named path parameter as a positive id
func (h *Handlers) paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(c, apperrors.BadRequest("Invalid "+name, err))
		return 0, false
	}
	return id, true
}

// Health handles GET /health
func (h *Handlers) Health(c *gin.Context) {
	_, loggedIn := h.Session.User()
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"logged_in":  loggedIn,
		"ws_clients": h.Hub.GetActiveConnections(),
	})
}
