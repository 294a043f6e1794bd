package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/drak905/replit-kara/internal/domain"
	"github.com/drak905/replit-kara/internal/repository/mocks"
	"github.com/drak905/replit-kara/internal/tasks"
)

type fakePresence struct {
	occupied map[uuid.UUID]bool
}

func (f *fakePresence) RoomOccupied(roomID uuid.UUID) bool {
	return f.occupied[roomID]
}

func TestRoomSweepHandler_SkipsOccupiedRooms(t *testing.T) {
	mockRoomRepo := new(mocks.MockRoomRepository)

	stale := domain.Room{ID: uuid.New(), Code: "AAAAAA", LastActive: time.Now().Add(-200 * time.Hour)}
	occupied := domain.Room{ID: uuid.New(), Code: "BBBBBB", LastActive: time.Now().Add(-200 * time.Hour)}

	mockRoomRepo.On("FindInactiveSince", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Room{stale, occupied}, nil).Once()
	mockRoomRepo.On("Delete", mock.Anything, stale.ID).Return(nil).Once()

	presence := &fakePresence{occupied: map[uuid.UUID]bool{occupied.ID: true}}
	handler := NewRoomSweepHandler(mockRoomRepo, presence, 168*time.Hour)

	err := handler.ProcessTask(context.Background(), tasks.NewRoomSweepTask())

	require.NoError(t, err)
	mockRoomRepo.AssertExpectations(t)
	mockRoomRepo.AssertNotCalled(t, "Delete", mock.Anything, occupied.ID)
}

func TestRoomSweepHandler_NoCandidates(t *testing.T) {
	mockRoomRepo := new(mocks.MockRoomRepository)
	mockRoomRepo.On("FindInactiveSince", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]domain.Room{}, nil).Once()

	handler := NewRoomSweepHandler(mockRoomRepo, &fakePresence{}, 168*time.Hour)

	err := handler.ProcessTask(context.Background(), tasks.NewRoomSweepTask())

	require.NoError(t, err)
	mockRoomRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.True(t, mockRoomRepo.AssertExpectations(t))
}
