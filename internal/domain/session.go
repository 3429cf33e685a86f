package domain

import (
	"context"
	"time"
)

// SessionTTL is how long a session is kept before the storage layer may discard it.
const SessionTTL = 30 * 24 * time.Hour

// Session is one completed matching run. It is immutable once saved.
// swagger:model Session
type Session struct {
	ID            string    `json:"session_id"`
	Pairings      []Pairing `json:"pairings"`
	Budget        string    `json:"budget,omitempty"`
	OrganizerMode bool      `json:"organizer_mode"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// NewSession returns a Session created at createdAt with ExpiresAt set SessionTTL later.
func NewSession(id string, pairings []Pairing, budget string, organizerMode bool, createdAt time.Time) *Session {
	return &Session{
		ID:            id,
		Pairings:      pairings,
		Budget:        budget,
		OrganizerMode: organizerMode,
		CreatedAt:     createdAt,
		ExpiresAt:     createdAt.Add(SessionTTL),
	}
}

// SessionRepository persists sessions keyed by session id.
// Get returns ErrNotFound when nothing is stored under id.
type SessionRepository interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, id string) (*Session, error)
}

// ExpiredSessionPurger is implemented by repositories without native expiry.
// PurgeExpired removes sessions whose ExpiresAt is before now and returns how many were removed.
type ExpiredSessionPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// CreateSessionInput is the input for SessionService.CreateSession.
type CreateSessionInput struct {
	Participants      []Participant
	Budget            string
	OrganizerMode     bool
	SendNotifications bool
}

// CreateSessionResult is what a successful CreateSession returns.
type CreateSessionResult struct {
	Session       *Session
	Notifications []NotificationResult
}

// NotificationsSent counts the deliveries that succeeded.
func (r *CreateSessionResult) NotificationsSent() int {
	n := 0
	for _, res := range r.Notifications {
		if res.Status == NotificationSent {
			n++
		}
	}
	return n
}

// SessionService defines the business logic for creating and retrieving sessions.
type SessionService interface {
	CreateSession(ctx context.Context, in CreateSessionInput) (*CreateSessionResult, error)
	// GetSession returns the session when the access policy allows it:
	// ErrForbidden unless the session was created in organizer mode.
	GetSession(ctx context.Context, id string) (*Session, error)
}
