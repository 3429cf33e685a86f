// Package dynamodb stores sessions in a DynamoDB table keyed by session_id.
// The table's TTL attribute must be set to expiration_time; DynamoDB then
// deletes expired sessions on its own.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"secretsanta/internal/domain"
)

// legacyTimeLayout is the naive ISO timestamp written by older deployments.
const legacyTimeLayout = "2006-01-02T15:04:05.999999"

// API is the subset of *dynamodb.Client the repository needs.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// sessionItem is the table layout. Attribute names match the existing SecretSantaMatches table.
type sessionItem struct {
	SessionID      string           `dynamodbav:"session_id"`
	Matches        []pairingItem `dynamodbav:"matches"`
	Budget         string        `dynamodbav:"budget,omitempty"`
	IsOrganizer    bool          `dynamodbav:"is_organizer"`
	CreatedAt      string        `dynamodbav:"created_at"`
	ExpirationTime int64         `dynamodbav:"expiration_time"`
}

type participantItem struct {
	Name  string `dynamodbav:"name"`
	Email string `dynamodbav:"email"`
}

type pairingItem struct {
	Giver    participantItem `dynamodbav:"giver"`
	Receiver participantItem `dynamodbav:"receiver"`
}

func toPairingItems(pairings []domain.Pairing) []pairingItem {
	items := make([]pairingItem, len(pairings))
	for i, p := range pairings {
		items[i] = pairingItem{
			Giver:    participantItem(p.Giver),
			Receiver: participantItem(p.Receiver),
		}
	}
	return items
}

func fromPairingItems(items []pairingItem) []domain.Pairing {
	pairings := make([]domain.Pairing, len(items))
	for i, p := range items {
		pairings[i] = domain.Pairing{
			Giver:    domain.Participant(p.Giver),
			Receiver: domain.Participant(p.Receiver),
		}
	}
	return pairings
}

type SessionRepository struct {
	client API
	table  string
}

func NewSessionRepository(client API, table string) *SessionRepository {
	return &SessionRepository{client: client, table: table}
}

func (r *SessionRepository) Save(ctx context.Context, s *domain.Session) error {
	item, err := attributevalue.MarshalMap(sessionItem{
		SessionID:      s.ID,
		Matches:        toPairingItems(s.Pairings),
		Budget:         s.Budget,
		IsOrganizer:    s.OrganizerMode,
		CreatedAt:      s.CreatedAt.UTC().Format(time.RFC3339Nano),
		ExpirationTime: s.ExpiresAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(session_id)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return fmt.Errorf("session %s already exists: %w", s.ID, err)
		}
		return fmt.Errorf("failed to put item in table '%s': %w", r.table, err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"session_id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", r.table, err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrNotFound
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	createdAt, err := parseCreatedAt(item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		ID:            item.SessionID,
		Pairings:      fromPairingItems(item.Matches),
		Budget:        item.Budget,
		OrganizerMode: item.IsOrganizer,
		CreatedAt:     createdAt,
		ExpiresAt:     time.Unix(item.ExpirationTime, 0).UTC(),
	}, nil
}

func parseCreatedAt(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(legacyTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t.UTC(), nil
}
