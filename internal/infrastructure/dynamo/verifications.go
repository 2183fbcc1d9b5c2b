package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-account-api/internal/domain"
)

// VerificationRepo manages single-use verification records (account
// activation, MFA codes, password-reset tokens) in one table.
//
// PK: user_id, SK: kind — the table schema itself enforces "at most one live
// record per user per kind": Replace is a single-item put that atomically
// supersedes whatever record was there, so two concurrent issues for the same
// user cannot produce two live records. Lookups by key go through the
// `key-index` GSI, and ConsumeByKey is a conditional delete so a record can
// be consumed exactly once even under concurrent consumption.
type VerificationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewVerificationRepo(client *dynamodb.Client, tableName string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName}
}

// Replace persists v, atomically superseding any prior record of the same
// kind for the same user.
func (r *VerificationRepo) Replace(ctx context.Context, v *domain.UserVerification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// GetByKey looks a record up by its key material via the key-index GSI,
// constrained to the given kind.
func (r *VerificationRepo) GetByKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("key-index"),
		KeyConditionExpression: aws.String("verification_key = :k"),
		FilterExpression:       aws.String("kind = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: key},
			":t": &types.AttributeValueMemberS{Value: string(kind)},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("verification by key: %w", domain.ErrVerificationNotFound)
	}
	var v domain.UserVerification
	if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VerificationRepo) GetByUser(ctx context.Context, userID string, kind domain.VerificationKind) (*domain.UserVerification, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "kind", string(kind)),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification for user: %w", domain.ErrVerificationNotFound)
	}
	var v domain.UserVerification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Consume deletes v if and only if the stored record still carries the same
// key material. The conditional expression makes consumption exactly-once:
// if another request consumed or superseded the record first, the condition
// fails and the caller gets ErrVerificationNotFound.
func (r *VerificationRepo) Consume(ctx context.Context, v *domain.UserVerification) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("user_id", v.UserID, "kind", v.Kind),
		ConditionExpression: aws.String("verification_key = :k"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: v.Key},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("verification already consumed: %w", domain.ErrVerificationNotFound)
		}
		return err
	}
	return nil
}

// ConsumeByKey resolves the record behind key and consumes it in one step.
func (r *VerificationRepo) ConsumeByKey(ctx context.Context, kind domain.VerificationKind, key string) (*domain.UserVerification, error) {
	v, err := r.GetByKey(ctx, kind, key)
	if err != nil {
		return nil, err
	}
	if err := r.Consume(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// DeleteByUser removes any record of the given kind for the user. Idempotent.
func (r *VerificationRepo) DeleteByUser(ctx context.Context, userID string, kind domain.VerificationKind) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey("user_id", userID, "kind", string(kind)),
	})
	return err
}
