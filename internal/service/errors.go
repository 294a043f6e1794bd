package service

import "errors"

// Business errors surfaced to the transport layers. HTTP handlers map
// them to status codes, the hub maps them to error messages on the
// originating connection.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrSongNotFound      = errors.New("song not found in queue")
	ErrSearchUnavailable = errors.New("search service unavailable")
	ErrInternalServer    = errors.New("internal server error")
)
