package service

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/presence-service/internal/bus"
	"github.com/cwrk-planet/presence-service/internal/domain"
)

// RoomLifecycle рассылает событие удаления комнаты в её группу.
// Вызывается явно из операции удаления, а не через глобальный хук.
type RoomLifecycle struct {
	bus bus.Bus
}

func NewRoomLifecycle(b bus.Bus) *RoomLifecycle {
	return &RoomLifecycle{bus: b}
}

// OnRoomDeleted — fire-and-forget: подписчики сами закрываются,
// получив событие; подтверждений никто не ждёт.
func (l *RoomLifecycle) OnRoomDeleted(ctx context.Context, roomID int64) {
	group := domain.ChatGroupName(roomID)
	if err := l.bus.Publish(ctx, group, bus.Event{Type: bus.TypeRoomDeleted}); err != nil {
		slog.Error("lifecycle: publish room deleted failed", "room", roomID, "err", err)
	}
}
