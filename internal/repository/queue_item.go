package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/drak905/replit-kara/internal/domain"
)

// QueueItemRepository defines storage and retrieval of queue items.
type QueueItemRepository interface {
	// FindByRoom returns the room's queue in ascending position order.
	FindByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.QueueItem, error)

	// FindByRoomAndID looks an item up within one room. Returns
	// ErrNotFound when the item is absent or belongs to another room.
	FindByRoomAndID(ctx context.Context, roomID, itemID uuid.UUID) (*domain.QueueItem, error)

	// FindPlaying returns the room's currently playing item, or (nil, nil)
	// when no item is playing.
	FindPlaying(ctx context.Context, roomID uuid.UUID) (*domain.QueueItem, error)

	// FindFirstWaiting returns the waiting item with the lowest position,
	// or (nil, nil) when the queue holds no waiting items.
	FindFirstWaiting(ctx context.Context, roomID uuid.UUID) (*domain.QueueItem, error)

	// MaxPosition returns the highest position in the room's queue, or 0
	// for an empty queue.
	MaxPosition(ctx context.Context, roomID uuid.UUID) (int, error)

	// Save creates the item if new, updates it otherwise.
	Save(ctx context.Context, item *domain.QueueItem) error

	// Delete removes the item.
	Delete(ctx context.Context, item *domain.QueueItem) error
}
