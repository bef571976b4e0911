package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/Muchai14/code-collab-hub/internal/repository"
	"github.com/Muchai14/code-collab-hub/internal/tasks"
)

// RoomSweepHandler deletes rooms that have been idle past the threshold.
// Normal rooms are deleted the moment their last participant leaves; the
// sweep only catches rooms whose members disappeared without a leave call.
type RoomSweepHandler struct {
	store repository.RoomStore
}

// NewRoomSweepHandler creates the handler.
func NewRoomSweepHandler(store repository.RoomStore) *RoomSweepHandler {
	return &RoomSweepHandler{store: store}
}

// ProcessTask implements asynq.Handler.
func (h *RoomSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	var payload tasks.RoomSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal sweep payload")
		return fmt.Errorf("unmarshal sweep payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.IdleFor <= 0 {
		payload.IdleFor = 24 * time.Hour
	}

	cutoff := time.Now().Add(-payload.IdleFor)
	ids, err := h.store.FindInactiveSince(ctx, cutoff)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list idle rooms")
		return fmt.Errorf("list idle rooms: %w", err)
	}

	swept := 0
	for _, id := range ids {
		if err := h.store.Delete(ctx, id); err != nil {
			logCtx.WithError(err).WithField("room_id", id).Warn("Failed to sweep idle room")
			continue
		}
		swept++
	}
	if swept > 0 {
		logCtx.WithFields(logrus.Fields{"swept": swept, "cutoff": cutoff}).Info("Idle rooms swept")
	}
	return nil
}
