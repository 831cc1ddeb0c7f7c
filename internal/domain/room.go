package domain

import (
	"strconv"
	"time"
)

type Room struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	OwnerID   int64     `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
}

// ChatGroupName — имя broadcast-группы комнаты; детерминировано по id.
func ChatGroupName(roomID int64) string {
	return "chat-" + strconv.FormatInt(roomID, 10)
}

func (r *Room) ChatGroupName() string {
	return ChatGroupName(r.ID)
}
