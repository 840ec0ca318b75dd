package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-otp-gate/internal/domain"
)

// SessionValueRepo stores per-user session key/values.
// PK: user_id, SK: session_key. Expired rows are filtered on read and reaped by TTL.
type SessionValueRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSessionValueRepo(client *dynamodb.Client, tableName string) *SessionValueRepo {
	return &SessionValueRepo{client: client, tableName: tableName}
}

func (r *SessionValueRepo) Put(ctx context.Context, v *domain.SessionValue) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal session value: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Get returns the entry only while expires_at is in the future.
func (r *SessionValueRepo) Get(ctx context.Context, userID, key string, nowUnix int64) (*domain.SessionValue, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :u AND session_key = :k"),
		FilterExpression:       aws.String("#exp > :now"),
		ExpressionAttributeNames: map[string]string{
			"#exp": fieldExpiresAt,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u":   &types.AttributeValueMemberS{Value: userID},
			":k":   &types.AttributeValueMemberS{Value: key},
			":now": numValue(nowUnix),
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("session value not found: %w", domain.ErrNotFound)
	}
	var v domain.SessionValue
	if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *SessionValueRepo) Delete(ctx context.Context, userID, key string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "session_key", key),
	})
	return err
}

// DeleteAllForUser removes every entry of userID. Used when an account is deleted.
func (r *SessionValueRepo) DeleteAllForUser(ctx context.Context, userID string) error {
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :u"),
		ProjectionExpression:   aws.String("user_id, session_key"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, item := range page.Items {
			if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(r.tableName),
				Key:       item,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
