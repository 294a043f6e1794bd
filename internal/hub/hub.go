// Package hub maintains the live WebSocket connections per room and
// translates client intents into queue-state calls plus broadcasts.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drak905/replit-kara/internal/domain"
	"github.com/drak905/replit-kara/internal/protocol"
	"github.com/drak905/replit-kara/internal/service"
)

// WebSocket timing constants shared by hub and client pumps.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// Hub message types for the internal event channel.
const (
	msgRegister   = "register"
	msgUnregister = "unregister"
	msgInbound    = "inbound"
)

// RoomFinder resolves a join code to a room plus its queue snapshot.
type RoomFinder interface {
	GetRoomByCode(ctx context.Context, code string) (*domain.Room, []domain.QueueItem, error)
}

// QueueController covers the queue transitions the hub drives directly.
type QueueController interface {
	SetPlaying(ctx context.Context, roomID uuid.UUID, playing bool) (*domain.Room, error)
	Advance(ctx context.Context, roomID uuid.UUID) (*service.AdvanceResult, error)
}

// HubMessage is one event on the hub's internal channel.
type HubMessage struct {
	Type    string
	Client  *Client
	RawData []byte
}

// Hub tracks which connections are joined to which room and fans
// server-to-client messages out to them.
type Hub struct {
	messageChan chan HubMessage

	rooms   map[uuid.UUID]map[*Client]bool
	roomsMu sync.RWMutex

	roomFinder RoomFinder
	queue      QueueController
}

func NewHub(roomFinder RoomFinder, queue QueueController) *Hub {
	if roomFinder == nil {
		panic("RoomFinder cannot be nil for Hub")
	}
	if queue == nil {
		panic("QueueController cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[uuid.UUID]map[*Client]bool),
		roomFinder:  roomFinder,
		queue:       queue,
	}
}

// Run processes the hub's event channel. It should run in its own
// goroutine for the lifetime of the process.
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running")

	for msg := range h.messageChan {
		switch msg.Type {
		case msgRegister:
			log.Debug("Client connected, awaiting join")
		case msgUnregister:
			h.unregisterClient(msg.Client)
		case msgInbound:
			// Intents do persistence I/O; handling them off the loop
			// keeps one slow room from stalling every other room. The
			// per-room lock in the queue service serializes mutations.
			go h.handleInbound(msg)
		default:
			log.Warnf("Received unknown hub message type: %s", msg.Type)
		}
	}
	log.Info("Hub is shutting down")
}

// QueueMessage puts an event on the hub's channel without blocking.
// Returns false when the channel is full and the message was dropped.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// join adds a client to a room's connection set, creating it on demand.
func (h *Hub) join(roomID uuid.UUID, client *Client) {
	h.roomsMu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	h.roomsMu.Unlock()

	client.setRoom(roomID)
	logrus.WithField("room_id", roomID).Info("Client joined room")
}

// unregisterClient removes the client from its room set (if joined),
// drops the room entry once empty, and closes the client's send channel.
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		return
	}
	roomID, joined := client.Room()

	h.roomsMu.Lock()
	if joined {
		if roomClients, ok := h.rooms[roomID]; ok {
			delete(roomClients, client)
			if len(roomClients) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	h.roomsMu.Unlock()

	client.closeSend()
	logrus.WithField("room_id", roomID).Debug("Client unregistered from hub")
}

// Broadcast sends one serialized payload to every open connection joined
// to the room, optionally excluding one connection. Slow clients are
// skipped rather than blocking the broadcast.
func (h *Hub) Broadcast(roomID uuid.UUID, payload []byte, exclude *Client) {
	h.roomsMu.RLock()
	roomClients := h.rooms[roomID]
	targets := make([]*Client, 0, len(roomClients))
	for client := range roomClients {
		if client != exclude {
			targets = append(targets, client)
		}
	}
	h.roomsMu.RUnlock()

	for _, client := range targets {
		select {
		case client.send <- payload:
		default:
			logrus.WithField("room_id", roomID).Warn("Client send channel full during broadcast, skipping client")
		}
	}
}

// BroadcastMessage serializes a message once and broadcasts it to the
// whole room. Used by both the hub and the HTTP handlers.
func (h *Hub) BroadcastMessage(roomID uuid.UUID, msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).Error("Failed to marshal broadcast message")
		return
	}
	h.Broadcast(roomID, payload, nil)
}

// RoomOccupied reports whether any connection is currently joined to the
// room. Consulted by the stale-room sweep.
func (h *Hub) RoomOccupied(roomID uuid.UUID) bool {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[roomID]) > 0
}

// handleInbound dispatches one client intent. Failures are reported to
// the originating connection only; nothing here may take the connection
// or the process down.
func (h *Hub) handleInbound(msg HubMessage) {
	ctx := context.Background()

	in, err := protocol.ParseInbound(msg.RawData)
	if err != nil {
		logrus.WithError(err).Debug("Dropping malformed client message")
		h.sendTo(msg.Client, protocol.NewError("invalid message"))
		return
	}

	switch in.Type {
	case protocol.TypeJoinRoom:
		h.handleJoin(ctx, msg.Client, in.RoomCode)
	case protocol.TypePlay, protocol.TypePause:
		h.handleSetPlaying(ctx, msg.Client, in.Type == protocol.TypePlay)
	case protocol.TypeSkipSong:
		h.handleSkip(ctx, msg.Client)
	default:
		h.sendTo(msg.Client, protocol.NewError("unknown message type: "+in.Type))
	}
}

func (h *Hub) handleJoin(ctx context.Context, client *Client, code string) {
	room, queue, err := h.roomFinder.GetRoomByCode(ctx, code)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			h.sendTo(client, protocol.NewError("Room not found"))
		} else {
			logrus.WithError(err).WithField("room_code", code).Error("Failed to resolve room for join")
			h.sendTo(client, protocol.NewError("Failed to join room"))
		}
		return
	}

	h.join(room.ID, client)
	h.sendTo(client, protocol.NewRoomState(room, queue))
}

func (h *Hub) handleSetPlaying(ctx context.Context, client *Client, playing bool) {
	roomID, ok := client.Room()
	if !ok {
		// Lenient: play/pause before join is ignored, matching how late
		// or out-of-order client messages are treated.
		logrus.Debug("Ignoring playback intent from client with no room")
		return
	}

	room, err := h.queue.SetPlaying(ctx, roomID, playing)
	if err != nil {
		h.sendTo(client, protocol.NewError("Failed to update playback"))
		return
	}
	if room != nil {
		h.BroadcastMessage(roomID, protocol.NewPlaybackState(room.IsPlaying))
	}
}

func (h *Hub) handleSkip(ctx context.Context, client *Client) {
	roomID, ok := client.Room()
	if !ok {
		logrus.Debug("Ignoring skip intent from client with no room")
		return
	}

	res, err := h.queue.Advance(ctx, roomID)
	if err != nil {
		h.sendTo(client, protocol.NewError("Failed to skip song"))
		return
	}

	h.BroadcastMessage(roomID, protocol.NewCurrentSong(res.Room))
	h.BroadcastMessage(roomID, protocol.NewQueueUpdated(res.Queue))
	h.BroadcastMessage(roomID, protocol.NewPlaybackState(res.Room.IsPlaying))
}

// sendTo delivers a message to a single client without blocking.
func (h *Hub) sendTo(client *Client, msg interface{}) {
	if client == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal client message")
		return
	}
	select {
	case client.send <- payload:
	default:
		logrus.Warn("Client send channel full, message dropped")
	}
}
