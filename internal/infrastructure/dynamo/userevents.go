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

// UserEventRepo is the append-only user-info event store.
// PK: user_id, SK: event_id (ULID).
type UserEventRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewUserEventRepo(client *dynamodb.Client, tableName string) *UserEventRepo {
	return &UserEventRepo{client: client, tableName: tableName}
}

func (r *UserEventRepo) Put(ctx context.Context, e *domain.UserEvent) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal user event: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListRecent returns up to limit events of userID, newest first.
func (r *UserEventRepo) ListRecent(ctx context.Context, userID string, limit int32) ([]domain.UserEvent, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	events := []domain.UserEvent{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &events); err != nil {
		return nil, err
	}
	return events, nil
}
