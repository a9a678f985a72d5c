package room

import "errors"

var (
	ErrValidation    = errors.New("validation error")
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotMember     = errors.New("not a member of the room")
	ErrAlreadyMember = errors.New("already a member of the room")
	ErrRoomFull      = errors.New("room is full")
	ErrRoomNotFound  = errors.New("room not found")
	ErrNotReady      = errors.New("not all participants are ready")
)
