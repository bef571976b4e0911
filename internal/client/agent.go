package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Muchai14/code-collab-hub/internal/domain"
)

// State is the agent's connection state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

const writeWait = 10 * time.Second

// Agent keeps one client's view of a room in sync with the rest of the
// room. It owns its REST client and its relay connection; construct one
// per room session and Leave it when done — there is no shared singleton,
// so one process can run many concurrent sessions.
//
// Remote events apply last-writer-wins replaces; local edits apply
// optimistically before any network round trip.
type Agent struct {
	api      *API
	wsURL    string
	dialer   *websocket.Dialer
	executor Executor

	mu     sync.RWMutex
	state  State
	room   *domain.Room
	user   *domain.Participant
	result *domain.ExecutionResult

	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewAgent creates a disconnected agent.
func NewAgent(baseURL, wsURL string, executor Executor) *Agent {
	return &Agent{
		api:      NewAPI(baseURL, nil),
		wsURL:    wsURL,
		dialer:   websocket.DefaultDialer,
		executor: executor,
	}
}

// API exposes the underlying REST client.
func (a *Agent) API() *API { return a.api }

// State returns the current connection state.
func (a *Agent) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Room returns a copy of the local room state, or nil when not joined.
func (a *Agent) Room() *domain.Room {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.room.Clone()
}

// CurrentUser returns a copy of this agent's participant, or nil.
func (a *Agent) CurrentUser() *domain.Participant {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.user == nil {
		return nil
	}
	cp := *a.user
	return &cp
}

// ExecutionResult returns the transient result of the last execution seen
// by this agent (local or relayed), or nil.
func (a *Agent) ExecutionResult() *domain.ExecutionResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.result == nil {
		return nil
	}
	cp := *a.result
	return &cp
}

// CreateRoom creates a room, becomes its host and joins the relay. On any
// failure the agent is left fully disconnected with no local room state.
func (a *Agent) CreateRoom(ctx context.Context, hostName string, language domain.Language) error {
	if err := a.beginConnecting(); err != nil {
		return err
	}
	resp, err := a.api.CreateRoom(ctx, hostName, language)
	if err != nil {
		a.reset()
		return err
	}
	if err := a.connect(ctx, resp.Room, resp.User); err != nil {
		// Undo the half-created session so the room does not linger with
		// a phantom host.
		if leaveErr := a.api.LeaveRoom(ctx, resp.Room.ID, resp.User.ID); leaveErr != nil {
			logrus.WithError(leaveErr).WithField("room_id", resp.Room.ID).
				Warn("Failed to roll back room after relay connect failure")
		}
		a.reset()
		return err
	}
	return nil
}

// JoinRoom joins an existing room and subscribes to its relay. A missing
// room surfaces ErrRoomNotFound without mutating anything.
func (a *Agent) JoinRoom(ctx context.Context, roomID, userName string) error {
	if err := a.beginConnecting(); err != nil {
		return err
	}
	resp, err := a.api.JoinRoom(ctx, roomID, userName)
	if err != nil {
		a.reset()
		return err
	}
	if err := a.connect(ctx, resp.Room, resp.User); err != nil {
		if leaveErr := a.api.LeaveRoom(ctx, resp.Room.ID, resp.User.ID); leaveErr != nil {
			logrus.WithError(leaveErr).WithField("room_id", resp.Room.ID).
				Warn("Failed to roll back join after relay connect failure")
		}
		a.reset()
		return err
	}
	return nil
}

// Leave closes the relay connection, tells the server we left and resets
// all local state. Terminal for this session.
func (a *Agent) Leave(ctx context.Context) error {
	a.mu.Lock()
	if a.state == StateDisconnected {
		a.mu.Unlock()
		return nil
	}
	conn := a.conn
	roomID, userID := "", ""
	if a.room != nil {
		roomID = a.room.ID
	}
	if a.user != nil {
		userID = a.user.ID
	}
	a.conn = nil
	a.state = StateDisconnected
	a.room = nil
	a.user = nil
	a.result = nil
	a.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if roomID != "" && userID != "" {
		if err := a.api.LeaveRoom(ctx, roomID, userID); err != nil {
			return err
		}
	}
	return nil
}

// UpdateCode replaces the local buffer immediately and publishes the edit.
// No round-trip confirmation is awaited; an in-flight publish lost to a
// disconnect is simply dropped.
func (a *Agent) UpdateCode(code string) error {
	a.mu.Lock()
	if a.state != StateJoined || a.room == nil {
		a.mu.Unlock()
		return ErrNotJoined
	}
	a.room.Code = code
	roomID := a.room.ID
	a.mu.Unlock()

	return a.publish(domain.Event{
		Type:   domain.EventCodeUpdate,
		RoomID: roomID,
		Code:   &code,
	})
}

// UpdateLanguage switches the language optimistically, publishes the
// change, then issues the REST update and adopts the returned room (which
// carries the new boilerplate). Any stale execution result is cleared.
func (a *Agent) UpdateLanguage(ctx context.Context, language domain.Language) error {
	a.mu.Lock()
	if a.state != StateJoined || a.room == nil {
		a.mu.Unlock()
		return ErrNotJoined
	}
	a.room.Language = language
	roomID := a.room.ID
	a.mu.Unlock()

	if err := a.publish(domain.Event{
		Type:     domain.EventLanguageUpdate,
		RoomID:   roomID,
		Language: language,
	}); err != nil {
		return err
	}

	room, err := a.api.UpdateLanguage(ctx, roomID, language)
	if err != nil {
		return err
	}
	a.mu.Lock()
	if a.state == StateJoined {
		a.room = room
	}
	a.result = nil
	a.mu.Unlock()
	return nil
}

// PublishCursor broadcasts this agent's cursor position. Ephemeral: never
// persisted, never echoed back to us.
func (a *Agent) PublishCursor(position domain.CursorPosition) error {
	a.mu.Lock()
	if a.state != StateJoined || a.room == nil || a.user == nil {
		a.mu.Unlock()
		return ErrNotJoined
	}
	roomID := a.room.ID
	userID := a.user.ID
	a.mu.Unlock()

	return a.publish(domain.Event{
		Type:     domain.EventCursorUpdate,
		RoomID:   roomID,
		UserID:   userID,
		Position: &position,
	})
}

// RunCode executes the current buffer through the injected Executor and
// broadcasts the result. Executor failures never crash the session; they
// are folded into ExecutionResult.Error.
func (a *Agent) RunCode(ctx context.Context) (*domain.ExecutionResult, error) {
	a.mu.RLock()
	if a.state != StateJoined || a.room == nil {
		a.mu.RUnlock()
		return nil, ErrNotJoined
	}
	code := a.room.Code
	language := a.room.Language
	roomID := a.room.ID
	a.mu.RUnlock()

	if a.executor == nil {
		return nil, fmt.Errorf("client: no executor configured")
	}

	result, err := a.executor.Execute(ctx, code, language)
	if err != nil {
		result = &domain.ExecutionResult{Error: err.Error()}
	}
	if result == nil {
		result = &domain.ExecutionResult{Error: "executor returned no result"}
	}

	a.mu.Lock()
	a.result = result
	a.mu.Unlock()

	if err := a.publish(domain.Event{
		Type:   domain.EventExecutionResult,
		RoomID: roomID,
		Result: result,
	}); err != nil {
		return result, err
	}
	return result, nil
}

// ClearResult drops the transient execution result.
func (a *Agent) ClearResult() {
	a.mu.Lock()
	a.result = nil
	a.mu.Unlock()
}

// --- connection lifecycle ---

func (a *Agent) beginConnecting() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateDisconnected {
		return fmt.Errorf("client: already %s", a.state)
	}
	a.state = StateConnecting
	return nil
}

func (a *Agent) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = StateDisconnected
	a.room = nil
	a.user = nil
	a.result = nil
	a.conn = nil
}

// connect dials the relay, sends the join-room handshake and transitions
// to Joined.
func (a *Agent) connect(ctx context.Context, room *domain.Room, user *domain.Participant) error {
	conn, _, err := a.dialer.DialContext(ctx, a.wsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	join := domain.Event{Type: domain.EventJoinRoom, RoomID: room.ID, UserID: user.ID}
	data, err := join.Encode()
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	_ = conn.SetWriteDeadline(time.Time{})

	a.mu.Lock()
	a.state = StateJoined
	a.room = room.Clone()
	a.user = user
	a.conn = conn
	a.mu.Unlock()

	go a.readLoop(conn)
	logrus.WithFields(logrus.Fields{"room_id": room.ID, "user_id": user.ID}).
		Debug("Agent joined relay channel")
	return nil
}

// readLoop applies inbound relay events until the connection drops.
func (a *Agent) readLoop(conn *websocket.Conn) {
	defer func() {
		a.mu.Lock()
		// Only transition if this connection is still the active one; an
		// explicit Leave already moved us to Disconnected.
		if a.conn == conn {
			a.state = StateDisconnected
			a.conn = nil
		}
		a.mu.Unlock()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		ev, err := domain.ParseEvent(message)
		if err != nil {
			logrus.WithError(err).Warn("Agent: dropping malformed relay frame")
			continue
		}
		a.apply(ev)
	}
}

// apply reconciles one remote event into local state. Every branch is a
// full replace, so re-applying the same event is a no-op.
func (a *Agent) apply(ev domain.Event) {
	switch ev.Type {
	case domain.EventCodeUpdate:
		if ev.Code != nil {
			a.mu.Lock()
			if a.room != nil {
				a.room.Code = *ev.Code
			}
			a.mu.Unlock()
			return
		}
		if ev.Language != "" {
			// A code-update carrying only a language means our buffer is
			// stale: the boilerplate reset is not in the payload.
			a.refetchRoom(ev.Language)
		}
	case domain.EventLanguageUpdate:
		a.refetchRoom(ev.Language)
	case domain.EventCursorUpdate:
		if ev.Position == nil || ev.UserID == "" {
			return
		}
		a.mu.Lock()
		if a.room != nil {
			if p := a.room.Participant(ev.UserID); p != nil {
				pos := *ev.Position
				p.CursorPosition = &pos
			}
		}
		a.mu.Unlock()
	case domain.EventExecutionResult:
		if ev.Result == nil {
			return
		}
		a.mu.Lock()
		result := *ev.Result
		a.result = &result
		a.mu.Unlock()
	}
}

// refetchRoom repairs staleness after a remote language change: set the
// language optimistically, then replace all local room fields with the
// authoritative copy from the store.
func (a *Agent) refetchRoom(language domain.Language) {
	a.mu.Lock()
	if a.room == nil {
		a.mu.Unlock()
		return
	}
	if language != "" {
		a.room.Language = language
	}
	roomID := a.room.ID
	a.mu.Unlock()

	room, err := a.api.GetRoom(context.Background(), roomID)
	if err != nil || room == nil {
		logrus.WithError(err).WithField("room_id", roomID).
			Warn("Agent: failed to re-fetch room after language change")
		return
	}
	a.mu.Lock()
	if a.state == StateJoined && a.room != nil && a.room.ID == roomID {
		a.room = room
	}
	// A language change invalidates any previous run output.
	a.result = nil
	a.mu.Unlock()
}

// publish sends one event over the relay connection.
func (a *Agent) publish(ev domain.Event) error {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()
	if conn == nil {
		return ErrNotJoined
	}
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("client: encode event: %w", err)
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("client: publish %s: %w", ev.Type, err)
	}
	_ = conn.SetWriteDeadline(time.Time{})
	return nil
}
