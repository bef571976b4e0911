package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Muchai14/code-collab-hub/internal/domain"
)

// Client is one websocket connection attached to the hub. It is not a
// room member until its first frame, a join-room event, names the room it
// subscribes to; only events published after that moment are delivered.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	roomID string
	userID string
	send   chan []byte
	// done is closed by the hub on unregister. send is never closed:
	// broadcasts may still be in flight after the snapshot in
	// Hub.broadcast, and a send on a closed channel would panic.
	done   chan struct{}
	joined bool
}

// NewClient wraps an upgraded connection. Registration happens lazily on
// the join-room handshake inside ReadPump.
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump pumps frames from the websocket into the hub. The first frame
// must be a join-room event; everything after is handled synchronously so
// a sender's events reach receivers in publish order.
func (c *Client) ReadPump() {
	defer func() {
		if c.joined {
			select {
			case c.hub.commands <- command{kind: "unregister", client: c}:
			case <-time.After(time.Second):
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
					Warn("Timeout sending unregister command to hub")
			}
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
			Debug("Read pump exited")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("Websocket read error")
			} else {
				logCtx.Debug("Websocket connection closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if !c.joined {
			ev, err := domain.ParseEvent(message)
			if err != nil || ev.Type != domain.EventJoinRoom || ev.RoomID == "" {
				logrus.Warn("First frame was not a valid join-room event, closing connection")
				return
			}
			c.roomID = ev.RoomID
			c.userID = ev.UserID
			if !c.hub.queue(command{kind: "register", client: c}) {
				return
			}
			c.joined = true
			continue
		}

		c.hub.HandleEvent(c, message)
	}
}

// WritePump pumps messages from the send channel to the websocket and
// keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			// Hub unregistered us.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// RoomID returns the room this client joined, or "" before the handshake.
func (c *Client) RoomID() string { return c.roomID }

// UserID returns the participant id supplied in the handshake.
func (c *Client) UserID() string { return c.userID }

// CloseConn force-closes the underlying connection.
func (c *Client) CloseConn() { c.conn.Close() }
