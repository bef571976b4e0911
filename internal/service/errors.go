package service

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrInvalidLanguage = errors.New("unsupported language")
	ErrInternalServer  = errors.New("internal server error")
)
