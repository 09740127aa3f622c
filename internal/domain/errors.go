package domain

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomInactive = errors.New("room is not active")
	ErrRoomFull     = errors.New("room is full")
	ErrRoomExists   = errors.New("room already exists")
)
