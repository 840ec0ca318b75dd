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

// DeviceRepo provides typed DynamoDB operations for the devices table.
// PK: device_id; GSI user_id-index lists a user's devices.
type DeviceRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewDeviceRepo(client *dynamodb.Client, tableName string) *DeviceRepo {
	return &DeviceRepo{client: client, tableName: tableName}
}

func (r *DeviceRepo) Put(ctx context.Context, d *domain.Device) error {
	item, err := attributevalue.MarshalMap(d)
	if err != nil {
		return fmt.Errorf("marshal device: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// ListByUser returns every device recorded for userID.
func (r *DeviceRepo) ListByUser(ctx context.Context, userID string) ([]domain.Device, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	devices := []domain.Device{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

func (r *DeviceRepo) DeleteByUser(ctx context.Context, userID string) error {
	devices, err := r.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       strKey("device_id", d.DeviceID),
		}); err != nil {
			return err
		}
	}
	return nil
}
