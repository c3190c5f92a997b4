package service

import (
	"github.com/w3cp/w3cp/internal/lib/job"
	"github.com/w3cp/w3cp/internal/repository"
	"github.com/w3cp/w3cp/internal/server"
)

// Services is the container of all services.
type Services struct {
	ChargePoint *ChargePointService
	Sessions    *SessionService
	Job         *job.JobService
}

// NewService builds the services and connects completed sessions to the
// archive.
func NewService(s *server.Server, repos *repository.Repositories) (*Services, error) {
	sessions := NewSessionService(s, repos.Sessions)

	if s.Job != nil && repos.Sessions != nil {
		s.Job.InitHandlers(repos.Sessions)
	}
	s.Runtime.OnSessionEnded(sessions.ArchiveCompleted)

	return &Services{
		ChargePoint: NewChargePointService(s),
		Sessions:    sessions,
		Job:         s.Job,
	}, nil
}
