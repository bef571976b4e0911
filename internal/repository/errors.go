package repository

import "errors"

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
)

var (
	ErrRoomNotFound = ErrNotFound
)
