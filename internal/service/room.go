package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/drak905/replit-kara/internal/domain"
	"github.com/drak905/replit-kara/internal/repository"
)

// codeAlphabet holds the 32 symbols room codes are drawn from. Visually
// ambiguous characters (I, O, 0, 1) are excluded so codes survive being
// read off a TV screen.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// RoomService owns room creation and lookup.
type RoomService struct {
	roomRepo repository.RoomRepository
	itemRepo repository.QueueItemRepository
}

func NewRoomService(roomRepo repository.RoomRepository, itemRepo repository.QueueItemRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if itemRepo == nil {
		panic("QueueItemRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo, itemRepo: itemRepo}
}

// NormalizeCode uppercases a user-entered room code; lookups are
// case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom generates a fresh unique room code and persists the room
// with an empty queue and playback stopped.
func (s *RoomService) CreateRoom(ctx context.Context) (*domain.Room, error) {
	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to generate unique room code")
		return nil, ErrInternalServer
	}

	room := &domain.Room{
		ID:         uuid.New(),
		Code:       code,
		IsPlaying:  false,
		LastActive: time.Now(),
	}
	if err := s.roomRepo.Save(ctx, room); err != nil {
		logrus.WithError(err).WithField("room_code", code).Error("Failed to save new room")
		return nil, ErrInternalServer
	}

	logrus.WithFields(logrus.Fields{"room_id": room.ID, "room_code": room.Code}).Info("Room created")
	return room, nil
}

// GetRoomByCode resolves a (case-insensitive) code to the room and its
// queue in ascending position order.
func (s *RoomService) GetRoomByCode(ctx context.Context, code string) (*domain.Room, []domain.QueueItem, error) {
	code = NormalizeCode(code)
	logCtx := logrus.WithField("room_code", code)

	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logCtx.Debug("Room not found by code")
			return nil, nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to find room by code")
		return nil, nil, ErrInternalServer
	}

	queue, err := s.itemRepo.FindByRoom(ctx, room.ID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to load queue for room")
		return nil, nil, ErrInternalServer
	}
	return room, queue, nil
}

// generateUniqueCode draws codes until one is free. A collision needs two
// rooms on the same 1-in-32^6 draw, so the loop effectively never
// iterates twice; it is deliberately unbounded rather than failing under
// contention.
func (s *RoomService) generateUniqueCode(ctx context.Context) (string, error) {
	buf := make([]byte, codeLength)
	for {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate random bytes: %w", err)
		}
		for i := range buf {
			// len(codeAlphabet) divides 256, so the modulo is unbiased.
			buf[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
		}
		code := string(buf)

		exists, err := s.roomRepo.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check room code uniqueness: %w", err)
		}
		if !exists {
			return code, nil
		}
		logrus.WithField("room_code", code).Warn("Generated room code already exists, retrying")
	}
}
