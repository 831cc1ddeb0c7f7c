package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type RoomItem struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type RoomsListResponse struct {
	Items      []RoomItem `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

type OnlineUsersResponse struct {
	UsernameList []string `json:"username_list"`
}
