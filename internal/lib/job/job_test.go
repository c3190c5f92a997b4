package job

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3cp/w3cp/model"
)

type archived struct {
	portID  int
	session model.ChargeSession
}

type fakeArchiver struct {
	calls []archived
	err   error
}

func (f *fakeArchiver) Archive(_ context.Context, portID int, s model.ChargeSession) error {
	f.calls = append(f.calls, archived{portID: portID, session: s})
	return f.err
}

func newTestService() *JobService {
	log := zerolog.Nop()
	return &JobService{logger: &log}
}

func completedSession() model.ChargeSession {
	energy := 7.5
	return model.ChargeSession{
		SessionID:          uuid.New(),
		CreatedAt:          time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		SessionState:       model.SessionCompleted,
		EnergyToVehicleKWh: &energy,
	}
}

func TestNewArchiveSessionTask(t *testing.T) {
	s := completedSession()

	task, err := NewArchiveSessionTask(2, s)
	require.NoError(t, err)
	assert.Equal(t, TaskArchiveSession, task.Type())

	var p ArchiveSessionPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &p))
	assert.Equal(t, 2, p.ChargePortID)
	assert.Equal(t, s.SessionID, p.Session.SessionID)
	assert.Equal(t, 7.5, *p.Session.EnergyToVehicleKWh)
}

func TestHandleArchiveSessionTask(t *testing.T) {
	j := newTestService()
	archiver := &fakeArchiver{}
	j.InitHandlers(archiver)

	s := completedSession()
	task, err := NewArchiveSessionTask(1, s)
	require.NoError(t, err)

	require.NoError(t, j.handleArchiveSessionTask(context.Background(), task))
	require.Len(t, archiver.calls, 1)
	assert.Equal(t, 1, archiver.calls[0].portID)
	assert.Equal(t, s.SessionID, archiver.calls[0].session.SessionID)
}

func TestHandleArchiveSessionTaskFailures(t *testing.T) {
	s := completedSession()
	task, err := NewArchiveSessionTask(1, s)
	require.NoError(t, err)

	t.Run("archiver error is retried", func(t *testing.T) {
		j := newTestService()
		j.InitHandlers(&fakeArchiver{err: errors.New("db down")})

		err := j.handleArchiveSessionTask(context.Background(), task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("missing archiver skips retry", func(t *testing.T) {
		j := newTestService()
		err := j.handleArchiveSessionTask(context.Background(), task)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("bad payload skips retry", func(t *testing.T) {
		j := newTestService()
		j.InitHandlers(&fakeArchiver{})
		bad := asynq.NewTask(TaskArchiveSession, []byte("{"))
		err := j.handleArchiveSessionTask(context.Background(), bad)
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}
