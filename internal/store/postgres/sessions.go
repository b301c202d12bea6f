package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/alfredjeanlab/backoffice/internal/model"
)

func scanSession(r row) (*model.Session, error) {
	var (
		s         model.Session
		ip, agent sql.NullString
	)
	if err := r.Scan(&s.Token, &s.UserID, &s.ExpiresAt, &s.CreatedAt, &ip, &agent); err != nil {
		return nil, err
	}
	s.IPAddress, s.UserAgent = ip.String, agent.String
	return &s, nil
}

func (q queries) CreateSession(ctx context.Context, s *model.Session) error {
	return q.db.QueryRowContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		s.Token, s.UserID, s.ExpiresAt, nullString(s.IPAddress), nullString(s.UserAgent),
	).Scan(&s.CreatedAt)
}

func (q queries) GetSession(ctx context.Context, token string) (*model.Session, error) {
	return scanSession(q.db.QueryRowContext(ctx, `
		SELECT token, user_id, expires_at, created_at, ip_address, user_agent
		FROM sessions WHERE token = $1`, token))
}

func (q queries) DeleteSession(ctx context.Context, token string) error {
	return q.execOne(ctx, `DELETE FROM sessions WHERE token = $1`, token)
}

// DeleteExpiredSessions removes sessions that expired at or before now.
func (q queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	n, err := q.exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	return int(n), err
}
