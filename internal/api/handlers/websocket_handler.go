package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/karpool/karpool-client/internal/store"
	"github.com/karpool/karpool-client/pkg/logger"
	"github.com/karpool/karpool-client/pkg/websocket"
)

// HandleWebSocket handles GET /v1/ws
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	client := websocket.NewClient(h.Hub, conn, h.Logger)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	// Shells render from snapshots, so a new connection starts with the
	// current state of every store
	client.SendMessage(websocket.Message{Type: websocket.TypeState, Topic: store.NameSession, Data: h.Session.Snapshot()})
	client.SendMessage(websocket.Message{Type: websocket.TypeState, Topic: store.NameGeo, Data: h.Geo.Snapshot()})
	client.SendMessage(websocket.Message{Type: websocket.TypeState, Topic: store.NameSchedule, Data: h.Schedule.Snapshot()})
	client.SendMessage(websocket.Message{Type: websocket.TypeState, Topic: store.NameTrips, Data: h.Trips.View()})
	client.SendMessage(websocket.Message{Type: websocket.TypeState, Topic: store.NameRequests, Data: h.Requests.Snapshot()})
}
