package service_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drak905/replit-kara/internal/domain"
	"github.com/drak905/replit-kara/internal/repository"
	"github.com/drak905/replit-kara/internal/service"
)

// memoryRoomRepo holds a single room in memory. An optional afterResolve
// hook runs after every FindByCode, letting a test hold callers at the
// point where the code lookup has completed but the room lock has not
// been taken yet.
type memoryRoomRepo struct {
	mu           sync.Mutex
	room         domain.Room
	afterResolve func()
}

func (r *memoryRoomRepo) FindByCode(ctx context.Context, code string) (*domain.Room, error) {
	r.mu.Lock()
	snapshot := r.room
	r.mu.Unlock()
	if r.afterResolve != nil {
		r.afterResolve()
	}
	return &snapshot, nil
}

func (r *memoryRoomRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.room.ID != id {
		return nil, repository.ErrNotFound
	}
	snapshot := r.room
	return &snapshot, nil
}

func (r *memoryRoomRepo) Save(ctx context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.room = *room
	return nil
}

func (r *memoryRoomRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func (r *memoryRoomRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (r *memoryRoomRepo) FindInactiveSince(ctx context.Context, cutoff time.Time) ([]domain.Room, error) {
	return nil, nil
}

type memoryItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]domain.QueueItem
}

func newMemoryItemRepo() *memoryItemRepo {
	return &memoryItemRepo{items: make(map[uuid.UUID]domain.QueueItem)}
}

func (r *memoryItemRepo) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]domain.QueueItem, 0, len(r.items))
	for _, item := range r.items {
		if item.RoomID == roomID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (r *memoryItemRepo) FindByRoomAndID(ctx context.Context, roomID, itemID uuid.UUID) (*domain.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok || item.RoomID != roomID {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (r *memoryItemRepo) FindPlaying(ctx context.Context, roomID uuid.UUID) (*domain.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.RoomID == roomID && item.Status == domain.StatusPlaying {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (r *memoryItemRepo) FindFirstWaiting(ctx context.Context, roomID uuid.UUID) (*domain.QueueItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first *domain.QueueItem
	for _, item := range r.items {
		if item.RoomID != roomID || item.Status != domain.StatusWaiting {
			continue
		}
		if first == nil || item.Position < first.Position {
			found := item
			first = &found
		}
	}
	return first, nil
}

func (r *memoryItemRepo) MaxPosition(ctx context.Context, roomID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, item := range r.items {
		if item.RoomID == roomID && item.Position > max {
			max = item.Position
		}
	}
	return max, nil
}

func (r *memoryItemRepo) Save(ctx context.Context, item *domain.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = *item
	return nil
}

func (r *memoryItemRepo) Delete(ctx context.Context, item *domain.QueueItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, item.ID)
	return nil
}

// Two adds race on an empty room: both resolve the room code before
// either takes the room lock (modelling callers suspended on repository
// I/O). Exactly one may start playing; the other must queue as waiting.
func TestQueueService_AddToQueue_ConcurrentAddsKeepSingleCurrent(t *testing.T) {
	roomID := uuid.New()
	roomRepo := &memoryRoomRepo{room: domain.Room{ID: roomID, Code: "ABC234"}}
	itemRepo := newMemoryItemRepo()
	queueService := service.NewQueueService(roomRepo, itemRepo)

	var barrier sync.WaitGroup
	barrier.Add(2)
	roomRepo.afterResolve = func() {
		barrier.Done()
		barrier.Wait()
	}

	results := make(chan *service.AddResult, 2)
	var wg sync.WaitGroup
	for _, videoID := range []string{"vid-1", "vid-2"} {
		wg.Add(1)
		go func(videoID string) {
			defer wg.Done()
			res, err := queueService.AddToQueue(context.Background(), "ABC234", service.AddSongInput{
				VideoID:   videoID,
				Title:     "Song " + videoID,
				Thumbnail: "thumb",
			})
			if assert.NoError(t, err) {
				results <- res
			}
		}(videoID)
	}
	wg.Wait()
	close(results)

	becameCurrent := 0
	for res := range results {
		if res.BecameCurrent {
			becameCurrent++
		}
	}
	assert.Equal(t, 1, becameCurrent)

	items, err := itemRepo.FindByRoom(context.Background(), roomID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	playing := 0
	for _, item := range items {
		if item.Status == domain.StatusPlaying {
			playing++
		}
	}
	assert.Equal(t, 1, playing)
	assert.Equal(t, []int{1, 2}, []int{items[0].Position, items[1].Position})

	room, err := roomRepo.FindByID(context.Background(), roomID)
	require.NoError(t, err)
	require.NotNil(t, room.CurrentVideoID)
	assert.True(t, room.IsPlaying)
}

// A remove of a waiting item races with a skip that changes the current
// song. The remove's room write must reflect the post-skip state, not
// the snapshot it read before taking the room lock.
func TestQueueService_RemoveFromQueue_DoesNotResurrectStaleCurrent(t *testing.T) {
	roomID := uuid.New()
	playing := domain.QueueItem{ID: uuid.New(), RoomID: roomID, VideoID: "vid-1", Title: "One", Thumbnail: "t", Position: 1, Status: domain.StatusPlaying}
	second := domain.QueueItem{ID: uuid.New(), RoomID: roomID, VideoID: "vid-2", Title: "Two", Thumbnail: "t", Position: 2, Status: domain.StatusWaiting}
	third := domain.QueueItem{ID: uuid.New(), RoomID: roomID, VideoID: "vid-3", Title: "Three", Thumbnail: "t", Position: 3, Status: domain.StatusWaiting}

	room := domain.Room{ID: roomID, Code: "ABC234"}
	room.SetCurrent(&playing)
	roomRepo := &memoryRoomRepo{room: room}
	itemRepo := newMemoryItemRepo()
	for _, item := range []*domain.QueueItem{&playing, &second, &third} {
		require.NoError(t, itemRepo.Save(context.Background(), item))
	}

	queueService := service.NewQueueService(roomRepo, itemRepo)

	// The remove resolves the room code while vid-1 still plays, then a
	// skip runs to completion before the remove's critical section
	// starts.
	resolved := make(chan struct{})
	proceed := make(chan struct{})
	roomRepo.afterResolve = func() {
		close(resolved)
		<-proceed
	}

	removeDone := make(chan *service.RemoveResult, 1)
	go func() {
		res, err := queueService.RemoveFromQueue(context.Background(), "ABC234", third.ID)
		assert.NoError(t, err)
		removeDone <- res
	}()

	<-resolved
	roomRepo.afterResolve = nil

	// Skip: vid-1 retires, vid-2 is promoted to current.
	advRes, err := queueService.Advance(context.Background(), roomID)
	require.NoError(t, err)
	require.NotNil(t, advRes.Current)
	require.Equal(t, "vid-2", advRes.Current.VideoID)

	close(proceed)
	removeRes := <-removeDone

	require.NotNil(t, removeRes)
	assert.False(t, removeRes.CurrentChanged)

	// The remove must not write back the pre-skip snapshot with vid-1.
	got, err := roomRepo.FindByID(context.Background(), roomID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentVideoID)
	assert.Equal(t, "vid-2", *got.CurrentVideoID)
	assert.True(t, got.IsPlaying)
}
