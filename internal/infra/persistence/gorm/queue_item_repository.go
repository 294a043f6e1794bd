package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/drak905/replit-kara/internal/domain"
	"github.com/drak905/replit-kara/internal/repository"
)

// GormQueueItemRepository is the GORM implementation of QueueItemRepository.
type GormQueueItemRepository struct {
	db *gorm.DB
}

func NewGormQueueItemRepository(db *gorm.DB) *GormQueueItemRepository {
	if db == nil {
		panic("database connection cannot be nil for GormQueueItemRepository")
	}
	return &GormQueueItemRepository{db: db}
}

func (r *GormQueueItemRepository) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]domain.QueueItem, error) {
	var items []domain.QueueItem
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find queue items for room %s: %w", roomID, err)
	}
	return items, nil
}

func (r *GormQueueItemRepository) FindByRoomAndID(ctx context.Context, roomID, itemID uuid.UUID) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND id = ?", roomID, itemID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find queue item %s in room %s: %w", itemID, roomID, err)
	}
	return &item, nil
}

func (r *GormQueueItemRepository) FindPlaying(ctx context.Context, roomID uuid.UUID) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, domain.StatusPlaying).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("gorm: find playing item for room %s: %w", roomID, err)
	}
	return &item, nil
}

func (r *GormQueueItemRepository) FindFirstWaiting(ctx context.Context, roomID uuid.UUID) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, domain.StatusWaiting).
		Order("position ASC").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("gorm: find first waiting item for room %s: %w", roomID, err)
	}
	return &item, nil
}

func (r *GormQueueItemRepository) MaxPosition(ctx context.Context, roomID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&domain.QueueItem{}).
		Where("room_id = ?", roomID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: max position for room %s: %w", roomID, err)
	}
	return max, nil
}

func (r *GormQueueItemRepository) Save(ctx context.Context, item *domain.QueueItem) error {
	err := r.db.WithContext(ctx).Save(item).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save queue item %s: %w", item.ID, err)
	}
	return nil
}

func (r *GormQueueItemRepository) Delete(ctx context.Context, item *domain.QueueItem) error {
	err := r.db.WithContext(ctx).Delete(&domain.QueueItem{}, "id = ?", item.ID).Error
	if err != nil {
		return fmt.Errorf("gorm: delete queue item %s: %w", item.ID, err)
	}
	return nil
}
