// Package tasks defines the asynq task types the worker processes.
package tasks

import "github.com/hibiken/asynq"

const (
	// TypeRoomSweep removes rooms that have been inactive past the
	// configured TTL. Scheduled periodically; carries no payload.
	TypeRoomSweep = "room:sweep"
)

func NewRoomSweepTask() *asynq.Task {
	return asynq.NewTask(TypeRoomSweep, nil)
}
