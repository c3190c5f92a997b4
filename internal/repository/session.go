package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/w3cp/w3cp/model"
)

const sessionsTable = "charge_sessions"

// ArchivedSession is a completed charge session as stored in the database.
type ArchivedSession struct {
	ChargePortID int `json:"chargePortId"`
	model.ChargeSession
	ArchivedAt time.Time `json:"archivedAt"`
}

// SessionFilter narrows List. A zero Limit means DefaultSessionLimit.
type SessionFilter struct {
	ChargePortID *int
	State        *model.SessionState
	Limit        int
	Offset       int
}

const (
	DefaultSessionLimit = 50
	MaxSessionLimit     = 500
)

// SessionRepository stores completed charge sessions in charge_sessions.
type SessionRepository struct {
	db Querier
}

func NewSessionRepository(db Querier) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `session_id, charge_port_id, session_state, end_reason, created_at,
	energy_flow_started_at, last_update_at, ended_at,
	energy_to_vehicle_kwh, energy_from_vehicle_kwh, archived_at`

// Archive stores s for portID. Archiving the same session again overwrites
// the earlier row.
func (r *SessionRepository) Archive(ctx context.Context, portID int, s model.ChargeSession) error {
	var endReason *string
	if s.EndReason != nil {
		v := string(*s.EndReason)
		endReason = &v
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO charge_sessions (
			session_id, charge_port_id, session_state, end_reason, created_at,
			energy_flow_started_at, last_update_at, ended_at,
			energy_to_vehicle_kwh, energy_from_vehicle_kwh
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id) DO UPDATE SET
			session_state = EXCLUDED.session_state,
			end_reason = EXCLUDED.end_reason,
			energy_flow_started_at = EXCLUDED.energy_flow_started_at,
			last_update_at = EXCLUDED.last_update_at,
			ended_at = EXCLUDED.ended_at,
			energy_to_vehicle_kwh = EXCLUDED.energy_to_vehicle_kwh,
			energy_from_vehicle_kwh = EXCLUDED.energy_from_vehicle_kwh,
			archived_at = NOW()`,
		s.SessionID,
		portID,
		string(s.SessionState),
		endReason,
		s.CreatedAt,
		s.EnergyFlowStartedAt,
		s.LastUpdateAt,
		s.EndedAt,
		s.EnergyToVehicleKWh,
		s.EnergyFromVehicleKWh,
	)
	if err != nil {
		return fmt.Errorf("table:%s: archive session %s: %w", sessionsTable, s.SessionID, err)
	}
	return nil
}

// GetByID returns one archived session. A missing row is a wrapped
// pgx.ErrNoRows.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*ArchivedSession, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM charge_sessions WHERE session_id = $1`, id)

	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("table:%s: %w", sessionsTable, err)
	}
	return s, nil
}

// List returns sessions newest first.
func (r *SessionRepository) List(ctx context.Context, filter SessionFilter) ([]ArchivedSession, error) {
	query, args := buildListQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("table:%s: list sessions: %w", sessionsTable, err)
	}
	defer rows.Close()

	sessions := []ArchivedSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("table:%s: scan session: %w", sessionsTable, err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table:%s: list sessions: %w", sessionsTable, err)
	}
	return sessions, nil
}

func buildListQuery(filter SessionFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.ChargePortID != nil {
		args = append(args, *filter.ChargePortID)
		where = append(where, fmt.Sprintf("charge_port_id = $%d", len(args)))
	}
	if filter.State != nil {
		args = append(args, string(*filter.State))
		where = append(where, fmt.Sprintf("session_state = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + sessionColumns + ` FROM charge_sessions`)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSessionLimit
	}
	limit = min(limit, MaxSessionLimit)

	args = append(args, limit, max(filter.Offset, 0))
	fmt.Fprintf(&b, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return b.String(), args
}

func scanSession(row pgx.Row) (*ArchivedSession, error) {
	var (
		s         ArchivedSession
		state     string
		endReason *string
	)
	err := row.Scan(
		&s.SessionID,
		&s.ChargePortID,
		&state,
		&endReason,
		&s.CreatedAt,
		&s.EnergyFlowStartedAt,
		&s.LastUpdateAt,
		&s.EndedAt,
		&s.EnergyToVehicleKWh,
		&s.EnergyFromVehicleKWh,
		&s.ArchivedAt,
	)
	if err != nil {
		return nil, err
	}

	s.SessionState = model.SessionState(state)
	if endReason != nil {
		reason := model.EndReason(*endReason)
		s.EndReason = &reason
	}
	return &s, nil
}
