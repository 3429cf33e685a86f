// Package redis stores sessions as JSON strings that Redis expires at the session's ExpiresAt.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"secretsanta/internal/domain"
)

const keyPrefix = "secretsanta:session:"

var ErrNoConnection = errors.New("can't establish connection to redis")

type Options struct {
	Addr     string
	Password string
	DB       int
}

type SessionRepository struct {
	log *slog.Logger
	db  redis.Cmdable
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, opt Options) (*redis.Client, error) {
	db := redis.NewClient(&redis.Options{Addr: opt.Addr, Password: opt.Password, DB: opt.DB})
	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("can't ping redis at %s: %w", opt.Addr, ErrNoConnection)
	}
	return db, nil
}

func NewSessionRepository(log *slog.Logger, db redis.Cmdable) *SessionRepository {
	return &SessionRepository{log: log, db: db}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	// NX keeps sessions immutable; ExpireAt hands cleanup to Redis.
	status, err := r.db.SetArgs(ctx, sessionKey(s.ID), data, redis.SetArgs{
		Mode:     "NX",
		ExpireAt: s.ExpiresAt,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	if err != nil {
		return fmt.Errorf("set %s: %w", sessionKey(s.ID), err)
	}
	r.log.DebugContext(ctx, "session stored in redis", "session_id", s.ID, "status", status)
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := r.db.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", sessionKey(id), err)
	}
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}
