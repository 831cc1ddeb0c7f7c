package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

// RoomRepository — комнаты в памяти; для dev-режима и тестов.
// Курсор пагинации не поддерживается: страница всегда первая.
type RoomRepository struct {
	mu     sync.Mutex
	m      map[int64]domain.Room
	nextID int64
}

func NewRoomRepository() *RoomRepository {
	return &RoomRepository{m: make(map[int64]domain.Room), nextID: 1}
}

func (r *RoomRepository) Create(_ context.Context, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room.ID = r.nextID
	r.nextID++
	room.CreatedAt = time.Now()
	r.m[room.ID] = *room

	return nil
}

func (r *RoomRepository) Get(_ context.Context, id int64) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.m[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}

	return &rm, nil
}

func (r *RoomRepository) List(_ context.Context, limit int, _ string) ([]domain.Room, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := make([]domain.Room, 0, len(r.m))
	for _, rm := range r.m {
		rooms = append(rooms, rm)
	}
	// свежие комнаты первыми, как в postgres-репозитории
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID > rooms[j].ID })

	if limit > 0 && len(rooms) > limit {
		rooms = rooms[:limit]
	}

	return rooms, "", nil
}

func (r *RoomRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.m[id]
	delete(r.m, id)

	return ok, nil
}
