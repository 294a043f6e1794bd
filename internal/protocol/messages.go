// Package protocol defines the JSON messages exchanged over the
// real-time channel. Every message carries a discriminating "type" field;
// inbound and outbound vocabularies are separate.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/drak905/replit-kara/internal/domain"
)

// Client-to-server message types.
const (
	TypeJoinRoom = "join_room"
	TypePlay     = "play"
	TypePause    = "pause"
	TypeSkipSong = "skip_song"
)

// Server-to-client message types.
const (
	TypeRoomState     = "room_state"
	TypeQueueUpdated  = "queue_updated"
	TypeSongAdded     = "song_added"
	TypeSongRemoved   = "song_removed"
	TypePlaybackState = "playback_state"
	TypeCurrentSong   = "current_song"
	TypeError         = "error"
)

// Inbound is a client intent. RoomCode is only meaningful for join_room.
type Inbound struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode,omitempty"`
}

// ParseInbound decodes a raw client message. The type is not validated
// here; dispatch decides what to do with unknown types.
func ParseInbound(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("parse inbound message: %w", err)
	}
	if msg.Type == "" {
		return Inbound{}, fmt.Errorf("inbound message has no type")
	}
	return msg, nil
}

// RoomStateMsg is the full snapshot sent to a client on join.
type RoomStateMsg struct {
	Type  string             `json:"type"`
	Room  *domain.Room       `json:"room"`
	Queue []domain.QueueItem `json:"queue"`
}

func NewRoomState(room *domain.Room, queue []domain.QueueItem) RoomStateMsg {
	if queue == nil {
		queue = []domain.QueueItem{}
	}
	return RoomStateMsg{Type: TypeRoomState, Room: room, Queue: queue}
}

// QueueUpdatedMsg carries the full reordered queue after a mutation.
type QueueUpdatedMsg struct {
	Type  string             `json:"type"`
	Queue []domain.QueueItem `json:"queue"`
}

func NewQueueUpdated(queue []domain.QueueItem) QueueUpdatedMsg {
	if queue == nil {
		queue = []domain.QueueItem{}
	}
	return QueueUpdatedMsg{Type: TypeQueueUpdated, Queue: queue}
}

// SongAddedMsg announces a single new queue item.
type SongAddedMsg struct {
	Type string            `json:"type"`
	Song *domain.QueueItem `json:"song"`
}

func NewSongAdded(song *domain.QueueItem) SongAddedMsg {
	return SongAddedMsg{Type: TypeSongAdded, Song: song}
}

// SongRemovedMsg announces a removed queue item by id.
type SongRemovedMsg struct {
	Type   string    `json:"type"`
	SongID uuid.UUID `json:"songId"`
}

func NewSongRemoved(songID uuid.UUID) SongRemovedMsg {
	return SongRemovedMsg{Type: TypeSongRemoved, SongID: songID}
}

// PlaybackStateMsg carries the room's play/pause flag.
type PlaybackStateMsg struct {
	Type      string `json:"type"`
	IsPlaying bool   `json:"isPlaying"`
}

func NewPlaybackState(isPlaying bool) PlaybackStateMsg {
	return PlaybackStateMsg{Type: TypePlaybackState, IsPlaying: isPlaying}
}

// CurrentSongMsg mirrors the room's now-playing fields; all three are
// null when the queue drained.
type CurrentSongMsg struct {
	Type      string  `json:"type"`
	VideoID   *string `json:"videoId"`
	Title     *string `json:"title"`
	Thumbnail *string `json:"thumbnail"`
}

func NewCurrentSong(room *domain.Room) CurrentSongMsg {
	return CurrentSongMsg{
		Type:      TypeCurrentSong,
		VideoID:   room.CurrentVideoID,
		Title:     room.CurrentTitle,
		Thumbnail: room.CurrentThumbnail,
	}
}

// ErrorMsg is sent to the originating connection only.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewError(message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Message: message}
}
