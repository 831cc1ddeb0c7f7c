package domain

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotOwner     = errors.New("not the room owner")
	ErrInvalidToken = errors.New("invalid access token")
)
