package domain

import (
	"time"

	"github.com/google/uuid"
)

// Room is one shared playback session, addressed by a short code that
// guests type in on the mobile screen. The Current* columns mirror the
// queue item whose status is "playing"; they are all nil while the queue
// is drained.
type Room struct {
	ID               uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Code             string    `gorm:"type:varchar(191);uniqueIndex:idx_room_code;not null" json:"code"`
	CurrentVideoID   *string   `gorm:"size:64" json:"currentVideoId"`
	CurrentTitle     *string   `gorm:"size:255" json:"currentTitle"`
	CurrentThumbnail *string   `gorm:"size:512" json:"currentThumbnail"`
	IsPlaying        bool      `gorm:"not null;default:false" json:"isPlaying"`
	LastActive       time.Time `gorm:"index" json:"-"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"-"`
}

// SetCurrent mirrors a queue item into the room's now-playing columns.
func (r *Room) SetCurrent(item *QueueItem) {
	videoID := item.VideoID
	title := item.Title
	thumbnail := item.Thumbnail
	r.CurrentVideoID = &videoID
	r.CurrentTitle = &title
	r.CurrentThumbnail = &thumbnail
	r.IsPlaying = true
}

// ClearCurrent resets the now-playing columns after the queue drains.
func (r *Room) ClearCurrent() {
	r.CurrentVideoID = nil
	r.CurrentTitle = nil
	r.CurrentThumbnail = nil
	r.IsPlaying = false
}
