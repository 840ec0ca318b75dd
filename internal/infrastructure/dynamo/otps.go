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

// OTPRepo stores issued one-time codes.
// PK: otp_key (identifier#purpose), SK: otp_id (ULID). Every issue adds a row.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Put(ctx context.Context, rec *domain.OTPRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Latest returns the most recently issued code for key, consumed or not.
func (r *OTPRepo) Latest(ctx context.Context, key string) (*domain.OTPRecord, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("otp_key = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: key},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var rec domain.OTPRecord
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Consume flips consumed to true only if it is still false and the code
// has guesses left. A lost race returns ErrConflict.
func (r *OTPRepo) Consume(ctx context.Context, key, otpID string) error {
	_, err := r.client.UpdateItem(ctx, r.consumeInput(key, otpID))
	if isConditionFailed(err) {
		return fmt.Errorf("otp already consumed: %w", domain.ErrConflict)
	}
	return err
}

// RecordFailure atomically adds one to the code's attempts counter.
func (r *OTPRepo) RecordFailure(ctx context.Context, key, otpID string) error {
	_, err := r.client.UpdateItem(ctx, r.failureInput(key, otpID))
	if isConditionFailed(err) {
		return fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	return err
}

func (r *OTPRepo) consumeInput(key, otpID string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("otp_key", key, "otp_id", otpID),
		UpdateExpression:    aws.String("SET #c = :t"),
		ConditionExpression: aws.String("attribute_exists(otp_key) AND #c = :f AND (attribute_not_exists(#a) OR #a < :max)"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldConsumed,
			"#a": fieldAttempts,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t":   &types.AttributeValueMemberBOOL{Value: true},
			":f":   &types.AttributeValueMemberBOOL{Value: false},
			":max": numValue(domain.MaxOTPAttempts),
		},
	}
}

func (r *OTPRepo) failureInput(key, otpID string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("otp_key", key, "otp_id", otpID),
		UpdateExpression:    aws.String("ADD #a :one"),
		ConditionExpression: aws.String("attribute_exists(otp_key)"),
		ExpressionAttributeNames: map[string]string{
			"#a": fieldAttempts,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": numValue(1),
		},
	}
}
