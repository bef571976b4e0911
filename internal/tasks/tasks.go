package tasks

import (
	"encoding/json"
	"time"
)

const (
	// TypeRoomSweep reaps rooms whose members vanished without leaving.
	TypeRoomSweep = "rooms:sweep"
)

// RoomSweepPayload carries the idle threshold for one sweep run.
type RoomSweepPayload struct {
	IdleFor time.Duration `json:"idleFor"`
}

// NewRoomSweepTask builds the payload for a room sweep task.
func NewRoomSweepTask(idleFor time.Duration) ([]byte, error) {
	return json.Marshal(RoomSweepPayload{IdleFor: idleFor})
}
