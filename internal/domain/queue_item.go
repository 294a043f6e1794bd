package domain

import (
	"time"

	"github.com/google/uuid"
)

// Queue item statuses. At most one item per room may be "playing" at any
// time, and that item must match the room's CurrentVideoID.
const (
	StatusWaiting = "waiting"
	StatusPlaying = "playing"
)

// QueueItem is one requested song in a room's ordered queue. Position is
// strictly increasing per room at insertion time and is only used for
// relative ordering; gaps appear after removals.
type QueueItem struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	RoomID       uuid.UUID `gorm:"type:char(36);index;not null" json:"roomId"`
	Room         Room      `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE" json:"-"`
	VideoID      string    `gorm:"size:64;not null" json:"videoId"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Thumbnail    string    `gorm:"size:512;not null" json:"thumbnail"`
	ChannelTitle string    `gorm:"size:255" json:"channelTitle,omitempty"`
	Duration     string    `gorm:"size:16" json:"duration,omitempty"`
	Position     int       `gorm:"not null" json:"position"`
	Status       string    `gorm:"size:16;not null;default:waiting" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"-"`
}
