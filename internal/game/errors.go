package game

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomExists        = errors.New("room already exists")
	ErrUnauthorized      = errors.New("only the host can do that")
	ErrNotInRoom         = errors.New("not a player in this room")
	ErrHostCannotJoin    = errors.New("the host cannot join their own room as a player")
	ErrInvalidState      = errors.New("not allowed in the current phase")
	ErrNoQuestions       = errors.New("quiz has no questions")
	ErrInvalidCoordinate = errors.New("coordinate out of range")
)
