package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"secretsanta/internal/domain"
	"secretsanta/internal/metrics"
)

type sessionService struct {
	logger         *slog.Logger
	matcher        domain.Matcher
	sessionRepo    domain.SessionRepository
	notifier       domain.NotificationService
	metrics        *metrics.Metrics
	defaultBudget  string
	contextTimeout time.Duration

	newID func() string
	now   func() time.Time
}

// NewSessionService wires matching, persistence and notification.
// defaultBudget is used when a create request carries no budget.
func NewSessionService(logger *slog.Logger,
	matcher domain.Matcher,
	sessionRepo domain.SessionRepository,
	notifier domain.NotificationService,
	m *metrics.Metrics,
	defaultBudget string,
	timeout time.Duration,
) domain.SessionService {
	return &sessionService{
		logger:         logger,
		matcher:        matcher,
		sessionRepo:    sessionRepo,
		notifier:       notifier,
		metrics:        m,
		defaultBudget:  defaultBudget,
		contextTimeout: timeout,
		newID:          uuid.NewString,
		now:            time.Now,
	}
}

func (s *sessionService) CreateSession(ctx context.Context, in domain.CreateSessionInput) (*domain.CreateSessionResult, error) {
	pairings, err := s.matcher.Generate(in.Participants)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("generate pairings: %w", err)
	}

	budget := strings.TrimSpace(in.Budget)
	if budget == "" {
		budget = s.defaultBudget
	}
	session := domain.NewSession(s.newID(), pairings, budget, in.OrganizerMode, s.now().UTC())

	if err := s.save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.metrics.SessionCreated()
	s.logger.InfoContext(ctx, "session created",
		"session_id", session.ID,
		"participants", len(pairings),
		"organizer_mode", session.OrganizerMode,
	)

	result := &domain.CreateSessionResult{
		Session:       session,
		Notifications: []domain.NotificationResult{},
	}
	if in.SendNotifications {
		result.Notifications = s.notifier.SendAssignments(ctx, session.Pairings, session.Budget)
	}
	return result, nil
}

func (s *sessionService) save(ctx context.Context, session *domain.Session) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()
	return s.sessionRepo.Save(ctx, session)
}

func (s *sessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: session_id is required", domain.ErrInvalidInput)
	}

	session, err := s.sessionRepo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !session.OrganizerMode {
		return nil, domain.ErrForbidden
	}
	return session, nil
}
