package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/w3cp/w3cp/model"
)

const (
	// TaskArchiveSession is the job type name stored in Redis.
	TaskArchiveSession = "session:archive"
)

// ArchiveSessionPayload is the JSON payload of the archive task.
type ArchiveSessionPayload struct {
	ChargePortID int                 `json:"chargePortId"`
	Session      model.ChargeSession `json:"session"`
}

// NewArchiveSessionTask builds the task that stores a completed session.
// The session id doubles as task id, so a session is queued at most once
// while its task is retained.
func NewArchiveSessionTask(portID int, session model.ChargeSession) (*asynq.Task, error) {
	payload, err := json.Marshal(ArchiveSessionPayload{
		ChargePortID: portID,
		Session:      session,
	})
	if err != nil {
		return nil, fmt.Errorf("encode archive session payload: %w", err)
	}

	return asynq.NewTask(
		TaskArchiveSession,
		payload,
		asynq.TaskID("session:"+session.SessionID.String()),
		asynq.MaxRetry(5),
		asynq.Queue("default"),
		asynq.Timeout(30*time.Second),
		asynq.Retention(24*time.Hour),
	), nil
}
