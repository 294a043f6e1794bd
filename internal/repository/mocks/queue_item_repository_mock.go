package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/drak905/replit-kara/internal/domain"
)

type MockQueueItemRepository struct {
	mock.Mock
}

func (m *MockQueueItemRepository) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.QueueItem, error) {
	args := m.Called(ctx, roomID)
	items, _ := args.Get(0).([]domain.QueueItem)
	return items, args.Error(1)
}

func (m *MockQueueItemRepository) FindByRoomAndID(ctx context.Context, roomID, itemID uuid.UUID) (*domain.QueueItem, error) {
	args := m.Called(ctx, roomID, itemID)
	item, _ := args.Get(0).(*domain.QueueItem)
	return item, args.Error(1)
}

func (m *MockQueueItemRepository) FindPlaying(ctx context.Context, roomID uuid.UUID) (*domain.QueueItem, error) {
	args := m.Called(ctx, roomID)
	item, _ := args.Get(0).(*domain.QueueItem)
	return item, args.Error(1)
}

func (m *MockQueueItemRepository) FindFirstWaiting(ctx context.Context, roomID uuid.UUID) (*domain.QueueItem, error) {
	args := m.Called(ctx, roomID)
	item, _ := args.Get(0).(*domain.QueueItem)
	return item, args.Error(1)
}

func (m *MockQueueItemRepository) MaxPosition(ctx context.Context, roomID uuid.UUID) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *MockQueueItemRepository) Save(ctx context.Context, item *domain.QueueItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockQueueItemRepository) Delete(ctx context.Context, item *domain.QueueItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}
