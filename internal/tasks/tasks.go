package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeUsageSnapshot = "quota:usage:snapshot"
)

type UsageSnapshotPayload struct{}

func NewUsageSnapshotTask(opts ...asynq.Option) (*asynq.Task, error) {
	payload := UsageSnapshotPayload{}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	uniqueOpt := asynq.Unique(1 * time.Minute)
	allOpts := append(opts, uniqueOpt)

	return asynq.NewTask(TypeUsageSnapshot, payloadBytes, allOpts...), nil
}
