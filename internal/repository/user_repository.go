package repository

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

// DynamoUserRepository stores users in a table keyed by "email".
type DynamoUserRepository struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

func NewDynamoUserRepository(client DynamoDBAPI, tableName string, logger *zap.Logger) *DynamoUserRepository {
	return &DynamoUserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func userKey(email string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"email": &types.AttributeValueMemberS{Value: email},
	}
}

// userUpsertExpression keeps id and created_at of an existing item and
// overwrites the identity-provider fields.
func userUpsertExpression(u *domain.User, newID string, now time.Time) expression.UpdateBuilder {
	update := expression.
		Set(expression.Name("id"), expression.IfNotExists(expression.Name("id"), expression.Value(newID))).
		Set(expression.Name("created_at"), expression.IfNotExists(expression.Name("created_at"), expression.Value(now))).
		Set(expression.Name("username"), expression.Value(u.Username)).
		Set(expression.Name("google_id"), expression.Value(u.GoogleID)).
		Set(expression.Name("updated_at"), expression.Value(now))

	if u.Name != nil {
		update = update.Set(expression.Name("name"), expression.Value(*u.Name))
	}
	if u.Image != nil {
		update = update.Set(expression.Name("image"), expression.Value(*u.Image))
	}
	return update
}

func (r *DynamoUserRepository) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	newID := user.ID
	if newID == "" {
		newID = uuid.NewString()
	}

	expr, err := expression.NewBuilder().
		WithUpdate(userUpsertExpression(user, newID, time.Now().UTC())).
		Build()
	if err != nil {
		return nil, storageErr(r.logger, "build user upsert", err)
	}

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       userKey(user.Email),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, storageErr(r.logger, "upsert user", err)
	}

	var stored domain.User
	if err := attributevalue.UnmarshalMap(result.Attributes, &stored); err != nil {
		return nil, storageErr(r.logger, "unmarshal user", err)
	}
	return &stored, nil
}

func (r *DynamoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       userKey(email),
	})
	if err != nil {
		return nil, storageErr(r.logger, "get user", err)
	}
	if result.Item == nil {
		return nil, domain.ErrUserNotFound
	}

	var user domain.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, storageErr(r.logger, "unmarshal user", err)
	}
	return &user, nil
}
