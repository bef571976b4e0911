package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Muchai14/code-collab-hub/internal/domain"
	"github.com/Muchai14/code-collab-hub/internal/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Code buffers ride in these
	// frames, so the limit is well above chat-sized payloads.
	maxMessageSize = 256 * 1024
)

// command is the internal register/unregister request processed by Run.
type command struct {
	kind   string // "register" or "unregister"
	client *Client
}

// bridgeEnvelope wraps a relayed frame on the redis pub/sub bridge. The
// instance tag lets a process drop its own publishes.
type bridgeEnvelope struct {
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
}

// Hub is the relay channel: it delivers an event published by one room
// member to every other current member of the same room. Best-effort only;
// nothing is queued for absent members and nothing is replayed.
type Hub struct {
	commands chan command

	// map[roomID]map[*Client]bool
	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	roomService *service.RoomService

	// Optional redis bridge for multi-process fan-out.
	redisClient *redis.Client
	keyPrefix   string
	instanceID  string
	subsMu      sync.Mutex
	subs        map[string]*redis.PubSub
}

// NewHub creates a Hub. redisClient may be nil, in which case fan-out is
// in-process only.
func NewHub(roomService *service.RoomService, redisClient *redis.Client, keyPrefix string) *Hub {
	if roomService == nil {
		panic("RoomService cannot be nil for Hub")
	}
	if keyPrefix == "" {
		keyPrefix = "cch:"
	}
	return &Hub{
		commands:    make(chan command, 256),
		rooms:       make(map[string]map[*Client]bool),
		roomService: roomService,
		redisClient: redisClient,
		keyPrefix:   keyPrefix,
		instanceID:  uuid.NewString(),
		subs:        make(map[string]*redis.PubSub),
	}
}

// Run processes registration traffic. It should run in its own goroutine
// and exits when the command channel is closed.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running")
	for cmd := range h.commands {
		switch cmd.kind {
		case "register":
			h.registerClient(cmd.client)
		case "unregister":
			h.unregisterClient(cmd.client)
		}
	}
	log.Info("Hub stopped")
}

func (h *Hub) registerClient(client *Client) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.roomID,
		"user_id": client.userID,
	})

	h.roomsMu.Lock()
	first := false
	if _, ok := h.rooms[client.roomID]; !ok {
		h.rooms[client.roomID] = make(map[*Client]bool)
		first = true
	}
	h.rooms[client.roomID][client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to hub")

	if first && h.redisClient != nil {
		h.subscribeRoom(client.roomID)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": client.roomID,
		"user_id": client.userID,
	})

	h.roomsMu.Lock()
	empty := false
	if roomClients, ok := h.rooms[client.roomID]; ok {
		if _, ok := roomClients[client]; ok {
			delete(roomClients, client)
			// Broadcasts snapshot receivers before locking, so a send can
			// still be in flight: signal via done rather than closing send.
			close(client.done)
			if len(roomClients) == 0 {
				delete(h.rooms, client.roomID)
				empty = true
			}
		}
	}
	h.roomsMu.Unlock()
	logCtx.Info("Client unregistered from hub")

	if empty {
		logCtx.Info("Room has no local members, dropping from hub")
		h.unsubscribeRoom(client.roomID)
	}
}

// HandleEvent processes one inbound frame from sender. It runs in the
// sender's read pump, so events from a single sender are applied and
// relayed in publish order (FIFO per sender-receiver pair).
func (h *Hub) HandleEvent(sender *Client, raw []byte) {
	ev, err := domain.ParseEvent(raw)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id": sender.roomID,
			"user_id": sender.userID,
		}).Warn("Dropping malformed relay frame")
		return
	}
	roomID := sender.roomID
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": sender.userID,
		"event":   ev.Type,
	})

	// The relay channel is the authoritative mutation path for buffer and
	// language; the store stays the single source of truth for getRoom.
	ctx := context.Background()
	out := domain.Event{Type: ev.Type, RoomID: roomID}
	switch ev.Type {
	case domain.EventCodeUpdate:
		if ev.Code == nil {
			logCtx.Warn("code-update without code payload, dropping")
			return
		}
		if _, err := h.roomService.UpdateCode(ctx, roomID, *ev.Code); err != nil {
			logCtx.WithError(err).Warn("Failed to persist code update")
		}
		out.Code = ev.Code
	case domain.EventLanguageUpdate:
		if _, err := h.roomService.UpdateLanguage(ctx, roomID, ev.Language); err != nil {
			if errors.Is(err, service.ErrInvalidLanguage) {
				// Relaying it would make peers adopt a language the room
				// can never hold.
				logCtx.Warn("Dropping language update with unsupported language")
				return
			}
			logCtx.WithError(err).Warn("Failed to persist language update")
		}
		out.Language = ev.Language
	case domain.EventCursorUpdate:
		out.Position = ev.Position
		out.UserID = sender.userID
	case domain.EventExecutionResult:
		out.Result = ev.Result
	default:
		logCtx.Warn("Unknown relay event type, dropping")
		return
	}

	data, err := out.Encode()
	if err != nil {
		logCtx.WithError(err).Error("Failed to encode relay event")
		return
	}
	h.broadcast(roomID, data, sender)
	h.publishBridge(roomID, data, logCtx)
}

// broadcast fans a message out to every current member of the room except
// the sender. Non-blocking: a receiver with a full send queue misses the
// message rather than stalling the room.
func (h *Hub) broadcast(roomID string, message []byte, sender *Client) {
	h.roomsMu.RLock()
	roomClients := h.rooms[roomID]
	receivers := make([]*Client, 0, len(roomClients))
	for client := range roomClients {
		if client != sender {
			receivers = append(receivers, client)
		}
	}
	h.roomsMu.RUnlock()

	if len(receivers) == 0 {
		return
	}
	for _, client := range receivers {
		select {
		case client.send <- message:
		default:
			logrus.WithFields(logrus.Fields{
				"room_id":          roomID,
				"receiver_user_id": client.userID,
			}).Warn("Client send channel full during broadcast, dropping message")
		}
	}
}

// --- redis bridge ---

func (h *Hub) bridgeChannel(roomID string) string {
	return h.keyPrefix + "room:" + roomID + ":events"
}

func (h *Hub) publishBridge(roomID string, data []byte, logCtx *logrus.Entry) {
	if h.redisClient == nil {
		return
	}
	env, err := json.Marshal(bridgeEnvelope{Instance: h.instanceID, Data: data})
	if err != nil {
		logCtx.WithError(err).Error("Failed to encode bridge envelope")
		return
	}
	if err := h.redisClient.Publish(context.Background(), h.bridgeChannel(roomID), env).Err(); err != nil {
		logCtx.WithError(err).Error("Failed to publish relay event to redis")
	}
}

func (h *Hub) subscribeRoom(roomID string) {
	h.subsMu.Lock()
	if _, ok := h.subs[roomID]; ok {
		h.subsMu.Unlock()
		return
	}
	sub := h.redisClient.Subscribe(context.Background(), h.bridgeChannel(roomID))
	h.subs[roomID] = sub
	h.subsMu.Unlock()

	logCtx := logrus.WithFields(logrus.Fields{"component": "hub", "room_id": roomID})
	logCtx.Info("Subscribed to room bridge channel")

	go func() {
		for msg := range sub.Channel() {
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logCtx.WithError(err).Warn("Malformed bridge envelope")
				continue
			}
			if env.Instance == h.instanceID {
				continue // our own publish coming back around
			}
			h.broadcast(roomID, env.Data, nil)
		}
		logCtx.Info("Room bridge subscription closed")
	}()
}

func (h *Hub) unsubscribeRoom(roomID string) {
	h.subsMu.Lock()
	sub, ok := h.subs[roomID]
	if ok {
		delete(h.subs, roomID)
	}
	h.subsMu.Unlock()
	if ok {
		if err := sub.Close(); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to close bridge subscription")
		}
	}
}

// StopAllSubscriptions tears down every bridge subscription. Called on
// shutdown.
func (h *Hub) StopAllSubscriptions() {
	h.subsMu.Lock()
	subs := h.subs
	h.subs = make(map[string]*redis.PubSub)
	h.subsMu.Unlock()
	for roomID, sub := range subs {
		if err := sub.Close(); err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Warn("Failed to close bridge subscription")
		}
	}
}

// queue puts a command on the hub's channel without blocking the caller.
func (h *Hub) queue(cmd command) bool {
	select {
	case h.commands <- cmd:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"command": cmd.kind,
			"room_id": cmd.client.roomID,
		}).Warn("Hub command channel full, dropping command")
		return false
	}
}
