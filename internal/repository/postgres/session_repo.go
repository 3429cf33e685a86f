package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"secretsanta/internal/domain"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type SessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{
		DB: db,
	}
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.Session) error {
	pairings, err := json.Marshal(s.Pairings)
	if err != nil {
		return fmt.Errorf("marshal pairings: %w", err)
	}
	query := `
		INSERT INTO secret_santa_sessions (session_id, pairings, budget, organizer_mode, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	budget := sql.NullString{String: s.Budget, Valid: s.Budget != ""}
	_, err = r.DB.ExecContext(ctx, query, s.ID, pairings, budget, s.OrganizerMode, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("session %s already exists: %w", s.ID, err)
		}
		return err
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT session_id, pairings, budget, organizer_mode, created_at, expires_at
		FROM secret_santa_sessions
		WHERE session_id = $1
	`
	var (
		s        domain.Session
		pairings []byte
		budget   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&s.ID, &pairings, &budget, &s.OrganizerMode, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(pairings, &s.Pairings); err != nil {
		return nil, fmt.Errorf("unmarshal pairings: %w", err)
	}
	s.Budget = budget.String
	return &s, nil
}

func (r *SessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM secret_santa_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
