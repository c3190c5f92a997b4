package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/w3cp/w3cp/model"
)

// SessionArchiver persists completed sessions.
type SessionArchiver interface {
	Archive(ctx context.Context, portID int, session model.ChargeSession) error
}

// InitHandlers sets the dependencies the task handlers need. It must run
// before Start.
func (j *JobService) InitHandlers(archiver SessionArchiver) {
	j.archiver = archiver
}

func (j *JobService) handleArchiveSessionTask(ctx context.Context, t *asynq.Task) error {
	var p ArchiveSessionPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal archive session payload: %w: %w", err, asynq.SkipRetry)
	}

	log := j.logger.With().
		Str("type", TaskArchiveSession).
		Int("charge_port_id", p.ChargePortID).
		Str("session_id", p.Session.SessionID.String()).
		Logger()

	if j.archiver == nil {
		log.Error().Msg("no session archiver configured, dropping task")
		return fmt.Errorf("no session archiver: %w", asynq.SkipRetry)
	}

	if err := j.archiver.Archive(ctx, p.ChargePortID, p.Session); err != nil {
		log.Error().Err(err).Msg("failed to archive session")
		return err
	}

	log.Info().Msg("archived charge session")
	return nil
}
