package repository

import (
	"github.com/w3cp/w3cp/internal/server"
)

// Repositories is a container for all repository instances. Without a
// configured database every repository is nil.
type Repositories struct {
	Sessions *SessionRepository
}

// NewRepositories builds the repositories over the database pool of s.
func NewRepositories(s *server.Server) *Repositories {
	if s.DB == nil {
		return &Repositories{}
	}
	return &Repositories{
		Sessions: NewSessionRepository(s.DB.Pool),
	}
}
