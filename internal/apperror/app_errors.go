package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell coordinates")

	ErrRoomFull           = errors.New("room has no free player slot")
	ErrGameAlreadyStarted = errors.New("game has already started")
	ErrNotAPlayer         = errors.New("not a player in this room")
	ErrNotInRoom          = errors.New("not an occupant of this room")

	ErrRoomNameInvalid = errors.New("room name is invalid")
	ErrDuplicateRoom   = errors.New("room already exists")
	ErrRegistryFull    = errors.New("room capacity exceeded")
	ErrRoomNotFound    = errors.New("room not found")

	ErrNotFound          = errors.New("not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrWrongPassword     = errors.New("wrong password")
	ErrInvalidUsername   = errors.New("username is invalid")
)
