package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/drak905/replit-kara/internal/hub"
)

// WebSocketHandler upgrades connections and hands them to the hub. A
// fresh connection belongs to no room; the client joins by sending a
// join_room message with its room code.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Rooms are public-by-code; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: h,
	}
}

// HandleConnection handles GET /ws.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logrus.WithError(err).Error("Failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn)
	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", Client: client}) {
		logrus.Error("Hub message channel full, dropping new connection")
		client.CloseConn()
		return
	}
	client.Run()
}
