package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Muchai14/code-collab-hub/internal/hub"
)

// Handler upgrades relay channel connections and hands them to the hub.
type Handler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewHandler creates a websocket Handler.
func NewHandler(h *hub.Hub) *Handler {
	if h == nil {
		panic("Hub cannot be nil for websocket Handler")
	}
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Room ids are unguessable capability tokens and the relay
			// carries no credentials, so any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: h,
	}
}

// HandleConnection handles GET /ws. The client subscribes to a room by
// sending a join-room event as its first frame.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade writes its own HTTP error response.
		logrus.WithError(err).Warn("WS Handler: Failed to upgrade connection")
		return
	}
	logrus.Debug("WS Handler: Connection upgraded")

	client := hub.NewClient(h.hub, conn)
	client.Run()
}
