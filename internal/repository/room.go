package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/drak905/replit-kara/internal/domain"
)

// RoomRepository defines storage and retrieval of rooms.
type RoomRepository interface {
	// FindByID looks a room up by its id. Returns ErrNotFound if absent.
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Room, error)

	// FindByCode looks a room up by its join code. The caller is expected
	// to have normalized the code already. Returns ErrNotFound if absent.
	FindByCode(ctx context.Context, code string) (*domain.Room, error)

	// Save creates the room if new, updates it otherwise.
	Save(ctx context.Context, room *domain.Room) error

	// CodeExists reports whether any room already holds the given code.
	CodeExists(ctx context.Context, code string) (bool, error)

	// Delete removes the room; its queue items go with it via the
	// foreign-key cascade.
	Delete(ctx context.Context, id uuid.UUID) error

	// FindInactiveSince lists rooms whose LastActive predates cutoff.
	FindInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Room, error)
}
