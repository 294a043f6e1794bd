package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drak905/replit-kara/internal/domain"
	"github.com/drak905/replit-kara/internal/repository"
)

// AddSongInput carries the external media reference for a new queue item.
type AddSongInput struct {
	VideoID      string
	Title        string
	Thumbnail    string
	ChannelTitle string
	Duration     string
}

// AddResult reports the outcome of AddToQueue. BecameCurrent is true when
// the queue was idle and the new item went straight to playing.
type AddResult struct {
	Item          *domain.QueueItem
	Room          *domain.Room
	BecameCurrent bool
}

// AdvanceResult reports the outcome of Advance. Current is nil when the
// queue drained.
type AdvanceResult struct {
	Room    *domain.Room
	Current *domain.QueueItem
	Queue   []domain.QueueItem
}

// RemoveResult reports the outcome of RemoveFromQueue. CurrentChanged is
// true when the removed item was the playing one, in which case Current
// holds its promoted successor (or nil when none remained).
type RemoveResult struct {
	RemovedID      uuid.UUID
	Room           *domain.Room
	Queue          []domain.QueueItem
	Current        *domain.QueueItem
	CurrentChanged bool
}

// QueueService is the single authority for transitions of a room's
// queue/current-item pair. All mutations run under a per-room mutex:
// repository calls suspend on I/O, and without the lock two interleaved
// skips could both read the same item as playing and double-promote.
type QueueService struct {
	roomRepo repository.RoomRepository
	itemRepo repository.QueueItemRepository
	locks    *roomLocker
}

func NewQueueService(roomRepo repository.RoomRepository, itemRepo repository.QueueItemRepository) *QueueService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for QueueService")
	}
	if itemRepo == nil {
		panic("QueueItemRepository cannot be nil for QueueService")
	}
	return &QueueService{
		roomRepo: roomRepo,
		itemRepo: itemRepo,
		locks:    newRoomLocker(),
	}
}

// AddToQueue appends a song to the room's queue. Positions are strictly
// increasing per room; when nothing is playing the new item starts
// immediately and the room mirrors it.
func (s *QueueService) AddToQueue(ctx context.Context, code string, input AddSongInput) (*AddResult, error) {
	roomID, err := s.resolveRoomID(ctx, code)
	if err != nil {
		return nil, err
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "video_id": input.VideoID})

	unlock := s.locks.Lock(roomID)
	defer unlock()

	// The code lookup only resolves the id; the state this transition
	// depends on is read under the lock.
	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	maxPos, err := s.itemRepo.MaxPosition(ctx, room.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to compute queue position")
		return nil, ErrInternalServer
	}

	item := &domain.QueueItem{
		ID:           uuid.New(),
		RoomID:       room.ID,
		VideoID:      input.VideoID,
		Title:        input.Title,
		Thumbnail:    input.Thumbnail,
		ChannelTitle: input.ChannelTitle,
		Duration:     input.Duration,
		Position:     maxPos + 1,
		Status:       domain.StatusWaiting,
	}

	becameCurrent := room.CurrentVideoID == nil
	if becameCurrent {
		item.Status = domain.StatusPlaying
	}

	if err := s.itemRepo.Save(ctx, item); err != nil {
		logCtx.WithError(err).Error("Failed to save queue item")
		return nil, ErrInternalServer
	}

	if becameCurrent {
		room.SetCurrent(item)
	}
	if err := s.saveRoomTouched(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to update room after add")
		return nil, ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{"item_id": item.ID, "position": item.Position, "status": item.Status}).Info("Song added to queue")
	return &AddResult{Item: item, Room: room, BecameCurrent: becameCurrent}, nil
}

// SetPlaying toggles the room's play/pause flag. A missing room is a
// silent no-op (nil room, nil error): late play/pause messages from
// clients are tolerated rather than treated as errors.
func (s *QueueService) SetPlaying(ctx context.Context, roomID uuid.UUID, playing bool) (*domain.Room, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logrus.WithField("room_id", roomID).Debug("SetPlaying on missing room ignored")
			return nil, nil
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to find room for SetPlaying")
		return nil, ErrInternalServer
	}

	room.IsPlaying = playing
	if err := s.saveRoomTouched(ctx, room); err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to save playback state")
		return nil, ErrInternalServer
	}
	return room, nil
}

// Advance retires the currently playing item and promotes the next
// waiting one, or clears playback when the queue drained. Invoked on
// explicit skips and by the TV surface when a video finishes.
func (s *QueueService) Advance(ctx context.Context, roomID uuid.UUID) (*AdvanceResult, error) {
	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	logCtx := logrus.WithField("room_id", room.ID)

	playing, err := s.itemRepo.FindPlaying(ctx, room.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to find playing item")
		return nil, ErrInternalServer
	}
	if playing != nil {
		if err := s.itemRepo.Delete(ctx, playing); err != nil {
			logCtx.WithError(err).Error("Failed to remove finished item")
			return nil, ErrInternalServer
		}
	}

	next, err := s.promoteNext(ctx, room)
	if err != nil {
		return nil, err
	}

	queue, err := s.itemRepo.FindByRoom(ctx, room.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to reload queue after advance")
		return nil, ErrInternalServer
	}

	logCtx.WithField("has_next", next != nil).Info("Queue advanced")
	return &AdvanceResult{Room: room, Current: next, Queue: queue}, nil
}

// RemoveFromQueue deletes one item from the room's queue. Removing the
// playing item behaves like an advance for the remainder of the queue.
func (s *QueueService) RemoveFromQueue(ctx context.Context, code string, itemID uuid.UUID) (*RemoveResult, error) {
	roomID, err := s.resolveRoomID(ctx, code)
	if err != nil {
		return nil, err
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "item_id": itemID})

	unlock := s.locks.Lock(roomID)
	defer unlock()

	room, err := s.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	item, err := s.itemRepo.FindByRoomAndID(ctx, room.ID, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSongNotFound
		}
		logCtx.WithError(err).Error("Failed to find queue item")
		return nil, ErrInternalServer
	}

	wasPlaying := item.Status == domain.StatusPlaying
	if err := s.itemRepo.Delete(ctx, item); err != nil {
		logCtx.WithError(err).Error("Failed to delete queue item")
		return nil, ErrInternalServer
	}

	var next *domain.QueueItem
	if wasPlaying {
		next, err = s.promoteNext(ctx, room)
		if err != nil {
			return nil, err
		}
	} else {
		if err := s.saveRoomTouched(ctx, room); err != nil {
			logCtx.WithError(err).Error("Failed to update room after remove")
			return nil, ErrInternalServer
		}
	}

	queue, err := s.itemRepo.FindByRoom(ctx, room.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to reload queue after remove")
		return nil, ErrInternalServer
	}

	logCtx.WithField("was_playing", wasPlaying).Info("Song removed from queue")
	return &RemoveResult{
		RemovedID:      itemID,
		Room:           room,
		Queue:          queue,
		Current:        next,
		CurrentChanged: wasPlaying,
	}, nil
}

// promoteNext marks the first waiting item as playing and mirrors it into
// the room, or clears the room's current fields when none remain. Callers
// must hold the room lock.
func (s *QueueService) promoteNext(ctx context.Context, room *domain.Room) (*domain.QueueItem, error) {
	logCtx := logrus.WithField("room_id", room.ID)

	next, err := s.itemRepo.FindFirstWaiting(ctx, room.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to find next waiting item")
		return nil, ErrInternalServer
	}

	if next != nil {
		next.Status = domain.StatusPlaying
		if err := s.itemRepo.Save(ctx, next); err != nil {
			logCtx.WithError(err).Error("Failed to promote next item")
			return nil, ErrInternalServer
		}
		room.SetCurrent(next)
	} else {
		room.ClearCurrent()
	}

	if err := s.saveRoomTouched(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save room after promotion")
		return nil, ErrInternalServer
	}
	return next, nil
}

func (s *QueueService) findRoomByCode(ctx context.Context, code string) (*domain.Room, error) {
	code = NormalizeCode(code)
	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_code", code).Error("Failed to find room by code")
		return nil, ErrInternalServer
	}
	return room, nil
}

// resolveRoomID maps a join code to a room id without holding the room
// lock. Mutations re-read the room with loadRoom once the lock is held.
func (s *QueueService) resolveRoomID(ctx context.Context, code string) (uuid.UUID, error) {
	room, err := s.findRoomByCode(ctx, code)
	if err != nil {
		return uuid.Nil, err
	}
	return room.ID, nil
}

// loadRoom reads the room by id. Mutations call it after acquiring the
// room lock so a transition never works from a pre-lock snapshot.
func (s *QueueService) loadRoom(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to load room")
		return nil, ErrInternalServer
	}
	return room, nil
}

func (s *QueueService) saveRoomTouched(ctx context.Context, room *domain.Room) error {
	room.LastActive = time.Now()
	return s.roomRepo.Save(ctx, room)
}
