package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/w3cp/w3cp/internal/errs"
	"github.com/w3cp/w3cp/internal/repository"
	"github.com/w3cp/w3cp/internal/server"
	"github.com/w3cp/w3cp/model"
)

// archiveTimeout bounds archiving one completed session.
const archiveTimeout = 10 * time.Second

// SessionStore persists and reads archived sessions.
type SessionStore interface {
	Archive(ctx context.Context, portID int, session model.ChargeSession) error
	List(ctx context.Context, filter repository.SessionFilter) ([]repository.ArchivedSession, error)
	GetByID(ctx context.Context, id uuid.UUID) (*repository.ArchivedSession, error)
}

// SessionQueue defers archiving to a background worker.
type SessionQueue interface {
	EnqueueArchiveSession(ctx context.Context, portID int, session model.ChargeSession) error
}

// SessionService archives completed charge sessions and reads them back.
// Sessions go through the job queue when redis is configured and straight
// to the database otherwise. Without a database they are only logged.
type SessionService struct {
	logger *zerolog.Logger
	store  SessionStore
	queue  SessionQueue
}

// NewSessionService uses repo when a database is configured, and the
// job queue in front of it when redis is configured too.
func NewSessionService(s *server.Server, repo *repository.SessionRepository) *SessionService {
	svc := &SessionService{logger: s.Logger}
	if repo != nil {
		svc.store = repo
		if s.Job != nil {
			svc.queue = s.Job
		}
	}
	return svc
}

// Enabled reports whether sessions are persisted.
func (ss *SessionService) Enabled() bool {
	return ss.store != nil
}

// ArchiveCompleted persists a session that just ended. Failures are logged
// since nobody waits for the result.
func (ss *SessionService) ArchiveCompleted(portID int, session model.ChargeSession) {
	log := ss.logger.With().
		Int("charge_port_id", portID).
		Str("session_id", session.SessionID.String()).
		Logger()

	if ss.store == nil {
		log.Info().Msg("charge session completed, archive disabled")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
	defer cancel()

	if ss.queue != nil {
		err := ss.queue.EnqueueArchiveSession(ctx, portID, session)
		if err == nil {
			return
		}
		log.Warn().Err(err).Msg("could not queue session archive, writing directly")
	}

	if err := ss.store.Archive(ctx, portID, session); err != nil {
		log.Error().Err(err).Msg("failed to archive charge session")
		return
	}
	log.Info().Msg("archived charge session")
}

// List returns archived sessions matching filter.
func (ss *SessionService) List(ctx context.Context, filter repository.SessionFilter) ([]repository.ArchivedSession, error) {
	if ss.store == nil {
		return nil, errPersistenceDisabled()
	}
	return ss.store.List(ctx, filter)
}

// Get returns one archived session.
func (ss *SessionService) Get(ctx context.Context, id uuid.UUID) (*repository.ArchivedSession, error) {
	if ss.store == nil {
		return nil, errPersistenceDisabled()
	}
	return ss.store.GetByID(ctx, id)
}

func errPersistenceDisabled() *errs.HTTPError {
	return errs.NewServiceUnavailableError("Session archive is disabled on this charge point")
}
