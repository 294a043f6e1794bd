package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/drak905/replit-kara/internal/domain"
	"github.com/drak905/replit-kara/internal/service"
)

// RoomHandler serves room lifecycle requests.
type RoomHandler struct {
	roomService *service.RoomService
}

func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	if roomService == nil {
		panic("RoomService cannot be nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService}
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	room, err := h.roomService.CreateRoom(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{"room_id": room.ID, "room_code": room.Code}).Info("Room created via API")
	SuccessResponse(c, http.StatusCreated, room)
}

// RoomWithQueueResponse bundles a room with its ordered queue.
type RoomWithQueueResponse struct {
	Room  *domain.Room       `json:"room"`
	Queue []domain.QueueItem `json:"queue"`
}

// GetRoom handles GET /api/rooms/:code. Codes are case-insensitive.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, queue, err := h.roomService.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if queue == nil {
		queue = []domain.QueueItem{}
	}
	SuccessResponse(c, http.StatusOK, RoomWithQueueResponse{Room: room, Queue: queue})
}
