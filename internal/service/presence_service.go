package service

import (
	"context"
	"fmt"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

// PresenceRepo — хранилище Membership; реализации: postgres и memory.
// Join/Leave по одной паре (room, user) сериализованы внутри реализации.
type PresenceRepo interface {
	Join(ctx context.Context, roomID int64, user domain.User, channelID string) (bool, error)
	Leave(ctx context.Context, roomID int64, user domain.User, channelID string) (bool, error)
	ListOnline(ctx context.Context, roomID int64) ([]domain.User, error)
	IsPresent(ctx context.Context, roomID, userID int64) (bool, error)
	DeleteByRoom(ctx context.Context, roomID int64) error
}

type PresenceService struct {
	repo PresenceRepo
}

func NewPresenceService(repo PresenceRepo) *PresenceService {
	return &PresenceService{repo: repo}
}

// Join регистрирует канал; true — это первое соединение пользователя в комнате.
func (s *PresenceService) Join(ctx context.Context, roomID int64, user domain.User, channelID string) (bool, error) {
	isNew, err := s.repo.Join(ctx, roomID, user, channelID)
	if err != nil {
		return false, fmt.Errorf("presenceRepo.Join: %w", err)
	}

	return isNew, nil
}

// Leave снимает канал; true — пользователь полностью покинул комнату.
func (s *PresenceService) Leave(ctx context.Context, roomID int64, user domain.User, channelID string) (bool, error) {
	isLast, err := s.repo.Leave(ctx, roomID, user, channelID)
	if err != nil {
		return false, fmt.Errorf("presenceRepo.Leave: %w", err)
	}

	return isLast, nil
}

func (s *PresenceService) ListOnline(ctx context.Context, roomID int64) ([]domain.User, error) {
	return s.repo.ListOnline(ctx, roomID)
}

func (s *PresenceService) IsPresent(ctx context.Context, roomID, userID int64) (bool, error) {
	return s.repo.IsPresent(ctx, roomID, userID)
}
