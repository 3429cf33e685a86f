package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
// Send returns the provider's message id when one is available.
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) (messageID string, err error)
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// AssignmentEmailData holds data for the assignment email sent to a giver.
type AssignmentEmailData struct {
	Email        string
	GiverName    string
	ReceiverName string
	Budget       string
}

// NotificationStatus is the outcome of a single delivery.
type NotificationStatus string

const (
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// NotificationResult records one delivery attempt.
// swagger:model NotificationResult
type NotificationResult struct {
	Email     string             `json:"email"`
	Status    NotificationStatus `json:"status"`
	MessageID string             `json:"message_id,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// NotificationService sends one assignment email per pairing.
// A failed delivery is recorded in its result and never stops the others.
type NotificationService interface {
	SendAssignments(ctx context.Context, pairings []Pairing, budget string) []NotificationResult
}
