package domain

import "encoding/json"

// EventType names a relay channel event kind.
type EventType string

const (
	EventJoinRoom        EventType = "join-room"
	EventCodeUpdate      EventType = "code-update"
	EventLanguageUpdate  EventType = "language-update"
	EventCursorUpdate    EventType = "cursor-update"
	EventExecutionResult EventType = "execution-result"
)

// Event is the wire envelope for the relay channel. Code is a pointer
// because presence matters: a code-update that carries a language but no
// code signals a stale buffer that receivers repair by re-fetching the
// room (the relay payload does not carry the new boilerplate).
type Event struct {
	Type     EventType        `json:"type"`
	RoomID   string           `json:"roomId,omitempty"`
	UserID   string           `json:"userId,omitempty"`
	Code     *string          `json:"code,omitempty"`
	Language Language         `json:"language,omitempty"`
	Position *CursorPosition  `json:"position,omitempty"`
	Result   *ExecutionResult `json:"result,omitempty"`
}

// ParseEvent decodes a raw websocket frame into an Event.
func ParseEvent(data []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(data, &ev)
	return ev, err
}

// Encode marshals the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
