package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

type RoomRepo interface {
	Create(ctx context.Context, room *domain.Room) error
	Get(ctx context.Context, id int64) (*domain.Room, error)
	List(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type RoomService struct {
	roomRepo  RoomRepo
	presence  PresenceRepo
	lifecycle *RoomLifecycle
}

func NewRoomService(roomRepo RoomRepo, presence PresenceRepo, lifecycle *RoomLifecycle) *RoomService {
	return &RoomService{
		roomRepo:  roomRepo,
		presence:  presence,
		lifecycle: lifecycle,
	}
}

// CreateRoom создаёт комнату; владелец — вызывающий пользователь.
func (s *RoomService) CreateRoom(ctx context.Context, name string, ownerID int64) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("empty room name")
	}
	if len(name) > 100 {
		name = name[:100]
	}

	room := &domain.Room{Name: name, OwnerID: ownerID}
	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, fmt.Errorf("roomRepo.Create: %w", err)
	}

	return room, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	return s.roomRepo.Get(ctx, id)
}

// ListRooms возвращает список комнат с курсорной пагинацией.
func (s *RoomService) ListRooms(ctx context.Context, limit int, cursor string) ([]domain.Room, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	return s.roomRepo.List(ctx, limit, cursor)
}

// DeleteRoom удаляет комнату (только владелец) и рассылает событие удаления
// в группу: каждое подключение закрывается само, получив его.
func (s *RoomService) DeleteRoom(ctx context.Context, id, callerID int64) error {
	room, err := s.roomRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	if room.OwnerID != callerID {
		return domain.ErrNotOwner
	}

	deleted, err := s.roomRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("roomRepo.Delete: %w", err)
	}
	if !deleted {
		return domain.ErrRoomNotFound
	}

	s.lifecycle.OnRoomDeleted(ctx, id)

	// живые подключения снимают свои каналы при закрытии; записи
	// оборвавшихся соединений удаляем здесь
	if err := s.presence.DeleteByRoom(ctx, id); err != nil {
		slog.Error("roomSvc: presence cleanup failed", "room", id, "err", err)
	}

	return nil
}
