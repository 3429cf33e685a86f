package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"secretsanta/internal/domain"
	"secretsanta/internal/metrics"
)

const assignmentTemplate = "assignment"

type notificationService struct {
	logger      *slog.Logger
	mailer      domain.Mailer
	renderer    domain.EmailTemplateRenderer
	metrics     *metrics.Metrics
	concurrency int
	sendTimeout time.Duration
}

// NewNotificationService returns a NotificationService that renders the "assignment"
// template for each pairing and sends it through mailer, at most concurrency at a time.
// Each send gets its own sendTimeout and is not cancelled with the caller's context.
func NewNotificationService(logger *slog.Logger, mailer domain.Mailer, renderer domain.EmailTemplateRenderer, m *metrics.Metrics, concurrency int, sendTimeout time.Duration) domain.NotificationService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &notificationService{
		logger:      logger,
		mailer:      mailer,
		renderer:    renderer,
		metrics:     m,
		concurrency: concurrency,
		sendTimeout: sendTimeout,
	}
}

func (s *notificationService) SendAssignments(ctx context.Context, pairings []domain.Pairing, budget string) []domain.NotificationResult {
	results := make([]domain.NotificationResult, len(pairings))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, p := range pairings {
		g.Go(func() error {
			results[i] = s.sendAssignment(ctx, p, budget)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *notificationService) sendAssignment(ctx context.Context, p domain.Pairing, budget string) domain.NotificationResult {
	res := domain.NotificationResult{Email: p.Giver.Email}

	messageID, err := s.send(ctx, &domain.AssignmentEmailData{
		Email:        p.Giver.Email,
		GiverName:    p.Giver.Name,
		ReceiverName: p.Receiver.Name,
		Budget:       budget,
	})
	if err != nil {
		res.Status = domain.NotificationFailed
		res.Error = err.Error()
		s.logger.WarnContext(ctx, "assignment email failed", "to", p.Giver.Email, "err", err)
	} else {
		res.Status = domain.NotificationSent
		res.MessageID = messageID
		s.logger.InfoContext(ctx, "assignment email sent", "to", p.Giver.Email, "message_id", messageID)
	}
	s.metrics.Notification(string(res.Status))
	return res
}

func (s *notificationService) send(ctx context.Context, data *domain.AssignmentEmailData) (string, error) {
	subject, htmlBody, textBody, err := s.renderer.Render(assignmentTemplate, data)
	if err != nil {
		return "", fmt.Errorf("render %s template: %w", assignmentTemplate, err)
	}
	sendCtx := context.WithoutCancel(ctx)
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(sendCtx, s.sendTimeout)
		defer cancel()
	}
	messageID, err := s.mailer.Send(sendCtx, data.Email, subject, htmlBody, textBody)
	if err != nil {
		return "", fmt.Errorf("send assignment email: %w", err)
	}
	return messageID, nil
}
