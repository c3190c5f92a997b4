package handler

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/w3cp/w3cp/internal/repository"
	"github.com/w3cp/w3cp/internal/server"
	"github.com/w3cp/w3cp/internal/service"
	"github.com/w3cp/w3cp/internal/validation"
	"github.com/w3cp/w3cp/model"
)

// ListSessionsRequest filters and pages archived sessions.
type ListSessionsRequest struct {
	ChargePortID int    `query:"chargePortId" validate:"gte=0"`
	State        string `query:"state" validate:"omitempty,oneof=pending active paused completed"`
	Limit        int    `query:"limit" validate:"gte=0,lte=500"`
	Offset       int    `query:"offset" validate:"gte=0"`
}

func (r *ListSessionsRequest) Validate() error { return validation.Struct(r) }

// Filter converts the query into a repository filter. Zero values mean
// "no filter".
func (r *ListSessionsRequest) Filter() repository.SessionFilter {
	filter := repository.SessionFilter{Limit: r.Limit, Offset: r.Offset}
	if r.ChargePortID > 0 {
		id := r.ChargePortID
		filter.ChargePortID = &id
	}
	if r.State != "" {
		state := model.SessionState(r.State)
		filter.State = &state
	}
	return filter
}

// GetSessionRequest selects one archived session by id.
type GetSessionRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *GetSessionRequest) Validate() error { return validation.Struct(r) }

// SessionHandler serves archived charge sessions.
type SessionHandler struct {
	Handler
	sessions *service.SessionService
}

func NewSessionHandler(s *server.Server, sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{
		Handler:  NewHandler(s),
		sessions: sessions,
	}
}

// ListSessions returns archived sessions, newest first.
func (h *SessionHandler) ListSessions(c echo.Context, req *ListSessionsRequest) ([]repository.ArchivedSession, error) {
	return h.sessions.List(c.Request().Context(), req.Filter())
}

// GetSession returns one archived session.
func (h *SessionHandler) GetSession(c echo.Context, req *GetSessionRequest) (*repository.ArchivedSession, error) {
	return h.sessions.Get(c.Request().Context(), uuid.MustParse(req.ID))
}
