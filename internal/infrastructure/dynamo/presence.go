package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-otp-gate/internal/domain"
)

// PresenceRepo keeps one last-seen row per user. PK: user_id.
type PresenceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewPresenceRepo(client *dynamodb.Client, tableName string) *PresenceRepo {
	return &PresenceRepo{client: client, tableName: tableName}
}

func (r *PresenceRepo) Put(ctx context.Context, p *domain.Presence) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PresenceRepo) Get(ctx context.Context, userID string) (*domain.Presence, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("presence not found: %w", domain.ErrNotFound)
	}
	var p domain.Presence
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SeenSince scans for users whose last beat is at or after since. The table
// holds a single small row per user so a filtered scan is acceptable.
func (r *PresenceRepo) SeenSince(ctx context.Context, since time.Time) ([]domain.Presence, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.tableName),
		FilterExpression:         aws.String("#ls >= :since"),
		ExpressionAttributeNames: map[string]string{"#ls": fieldLastSeenUnix},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":since": numValue(since.Unix()),
		},
	})
	online := []domain.Presence{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.Presence
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		online = append(online, batch...)
	}
	return online, nil
}

func (r *PresenceRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("user_id", userID),
	})
	return err
}
