package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-otp-gate/internal/domain"
)

// RoleRepo provides typed DynamoDB operations for the role_assignments table. PK: email.
type RoleRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRoleRepo(client *dynamodb.Client, tableName string) *RoleRepo {
	return &RoleRepo{client: client, tableName: tableName}
}

func (r *RoleRepo) Put(ctx context.Context, a *domain.RoleAssignment) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal role assignment: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Scan returns every assignment. The table is tiny (operators only).
func (r *RoleRepo) Scan(ctx context.Context) ([]domain.RoleAssignment, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	all := []domain.RoleAssignment{}
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.RoleAssignment
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (r *RoleRepo) Delete(ctx context.Context, email string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	return err
}
