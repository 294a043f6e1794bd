package http

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drak905/replit-kara/internal/protocol"
	"github.com/drak905/replit-kara/internal/service"
)

// Broadcaster fans a server-to-client message out to a room. Implemented
// by the hub; injectable so handler tests can substitute a fake.
type Broadcaster interface {
	BroadcastMessage(roomID uuid.UUID, msg interface{})
}

// validate reports field names by their json tag so validation errors
// match the wire format clients actually send.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// QueueHandler serves queue mutations and pushes the resulting deltas to
// the room's live connections.
type QueueHandler struct {
	queueService *service.QueueService
	broadcaster  Broadcaster
}

func NewQueueHandler(queueService *service.QueueService, broadcaster Broadcaster) *QueueHandler {
	if queueService == nil {
		panic("QueueService cannot be nil for QueueHandler")
	}
	if broadcaster == nil {
		panic("Broadcaster cannot be nil for QueueHandler")
	}
	return &QueueHandler{queueService: queueService, broadcaster: broadcaster}
}

// AddSongRequest is the payload for POST /api/rooms/:code/queue.
type AddSongRequest struct {
	VideoID      string `json:"videoId" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Thumbnail    string `json:"thumbnail" validate:"required"`
	ChannelTitle string `json:"channelTitle"`
	Duration     string `json:"duration"`
}

// AddSong handles POST /api/rooms/:code/queue.
func (h *QueueHandler) AddSong(c *gin.Context) {
	var req AddSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "validation failed",
				"fields": fields,
			})
			return
		}
		ErrorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.queueService.AddToQueue(c.Request.Context(), c.Param("code"), service.AddSongInput{
		VideoID:      req.VideoID,
		Title:        req.Title,
		Thumbnail:    req.Thumbnail,
		ChannelTitle: req.ChannelTitle,
		Duration:     req.Duration,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.broadcaster.BroadcastMessage(res.Room.ID, protocol.NewSongAdded(res.Item))
	if res.BecameCurrent {
		h.broadcaster.BroadcastMessage(res.Room.ID, protocol.NewCurrentSong(res.Room))
		h.broadcaster.BroadcastMessage(res.Room.ID, protocol.NewPlaybackState(res.Room.IsPlaying))
	}

	logrus.WithFields(logrus.Fields{"room_id": res.Room.ID, "item_id": res.Item.ID}).Info("Song added via API")
	SuccessResponse(c, http.StatusCreated, res.Item)
}

// RemoveSong handles DELETE /api/rooms/:code/queue/:itemId.
func (h *QueueHandler) RemoveSong(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		HandleServiceError(c, service.ErrSongNotFound)
		return
	}

	res, err := h.queueService.RemoveFromQueue(c.Request.Context(), c.Param("code"), itemID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	h.broadcaster.BroadcastMessage(res.Room.ID, protocol.NewSongRemoved(res.RemovedID))
	h.broadcaster.BroadcastMessage(res.Room.ID, protocol.NewQueueUpdated(res.Queue))
	if res.CurrentChanged {
		h.broadcaster.BroadcastMessage(res.Room.ID, protocol.NewCurrentSong(res.Room))
		h.broadcaster.BroadcastMessage(res.Room.ID, protocol.NewPlaybackState(res.Room.IsPlaying))
	}

	logrus.WithFields(logrus.Fields{"room_id": res.Room.ID, "item_id": res.RemovedID}).Info("Song removed via API")
	SuccessResponse(c, http.StatusOK, gin.H{"message": "Song removed"})
}
