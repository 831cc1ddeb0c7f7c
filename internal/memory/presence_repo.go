package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

type presenceKey struct {
	roomID int64
	userID int64
}

// PresenceRepository — внутрипроцессный аналог postgres-хранилища присутствия.
// Read-modify-write по ключу (room, user) целиком под одним мьютексом,
// поэтому параллельные Join/Leave одной пары не гонятся.
type PresenceRepository struct {
	mu sync.Mutex
	m  map[presenceKey]*domain.Membership
}

func NewPresenceRepository() *PresenceRepository {
	return &PresenceRepository{m: make(map[presenceKey]*domain.Membership)}
}

func (r *PresenceRepository) Join(_ context.Context, roomID int64, user domain.User, channelID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := presenceKey{roomID: roomID, userID: user.ID}
	m, ok := r.m[k]
	if !ok {
		m = &domain.Membership{RoomID: roomID, UserID: user.ID, Username: user.Username}
		r.m[k] = m
	}

	isNew := len(m.Channels) == 0
	if !slices.Contains(m.Channels, channelID) {
		m.Channels = append(m.Channels, channelID)
	}

	return isNew, nil
}

func (r *PresenceRepository) Leave(_ context.Context, roomID int64, user domain.User, channelID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := presenceKey{roomID: roomID, userID: user.ID}
	m, ok := r.m[k]
	if !ok {
		// уже полностью вышел
		return true, nil
	}

	m.Channels = slices.DeleteFunc(m.Channels, func(c string) bool { return c == channelID })
	if len(m.Channels) == 0 {
		delete(r.m, k)
		return true, nil
	}

	return false, nil
}

func (r *PresenceRepository) ListOnline(_ context.Context, roomID int64) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []domain.User
	for k, m := range r.m {
		if k.roomID == roomID {
			users = append(users, domain.User{ID: k.userID, Username: m.Username})
		}
	}

	return users, nil
}

func (r *PresenceRepository) IsPresent(_ context.Context, roomID, userID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.m[presenceKey{roomID: roomID, userID: userID}]
	return ok, nil
}

func (r *PresenceRepository) DeleteByRoom(_ context.Context, roomID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k := range r.m {
		if k.roomID == roomID {
			delete(r.m, k)
		}
	}

	return nil
}
