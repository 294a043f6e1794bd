package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/drak905/replit-kara/internal/repository"
)

// RoomPresence reports whether a room currently has live connections.
// Implemented by the hub.
type RoomPresence interface {
	RoomOccupied(roomID uuid.UUID) bool
}

// RoomSweepHandler deletes rooms that have been inactive longer than the
// TTL and have nobody connected. Queue items follow via the foreign-key
// cascade. Live sessions are never touched: occupancy is checked first.
type RoomSweepHandler struct {
	roomRepo repository.RoomRepository
	presence RoomPresence
	ttl      time.Duration
}

func NewRoomSweepHandler(roomRepo repository.RoomRepository, presence RoomPresence, ttl time.Duration) *RoomSweepHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomSweepHandler")
	}
	if presence == nil {
		panic("RoomPresence cannot be nil for RoomSweepHandler")
	}
	return &RoomSweepHandler{roomRepo: roomRepo, presence: presence, ttl: ttl}
}

// ProcessTask implements asynq.Handler.
func (h *RoomSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	cutoff := time.Now().Add(-h.ttl)
	rooms, err := h.roomRepo.FindInactiveSince(ctx, cutoff)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list inactive rooms")
		return err
	}

	swept := 0
	for _, room := range rooms {
		if h.presence.RoomOccupied(room.ID) {
			continue
		}
		if err := h.roomRepo.Delete(ctx, room.ID); err != nil {
			logCtx.WithError(err).WithField("room_id", room.ID).Error("Failed to delete stale room")
			continue
		}
		swept++
	}

	logCtx.WithFields(logrus.Fields{"candidates": len(rooms), "swept": swept}).Info("Room sweep completed")
	return nil
}
