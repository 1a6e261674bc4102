package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"project-bridge/internal/domain"
)

// Users wraps the DynamoDB users table. Records are keyed by userId; email
// lookups go through a filtered scan since the table carries no email index.
type Users struct {
	api       dynamodbAPI
	tableName string
}

// NewUsers creates a Users store for the given table.
func NewUsers(api dynamodbAPI, tableName string) (*Users, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: users table name must not be empty")
	}
	return &Users{api: api, tableName: tableName}, nil
}

// GetByID fetches a user by primary key. Returns ErrNotFound when absent.
func (u *Users) GetByID(ctx context.Context, userID string) (domain.User, error) {
	out, err := u.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(u.tableName),
		Key: map[string]types.AttributeValue{
			"userId": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: GetByID get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.User{}, fmt.Errorf("repository: user %q: %w", userID, ErrNotFound)
	}
	return itemToUser(out.Item)
}

// FindByEmail scans for a user with the given email attribute. Returns
// ErrNotFound when no record matches.
func (u *Users) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	out, err := u.api.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(u.tableName),
		FilterExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("repository: FindByEmail scan: %w", err)
	}
	if out == nil || len(out.Items) == 0 {
		return domain.User{}, fmt.Errorf("repository: user with email %q: %w", email, ErrNotFound)
	}
	return itemToUser(out.Items[0])
}

// Put inserts a new user record. The condition guards against overwriting a
// concurrently created record with the same key.
func (u *Users) Put(ctx context.Context, user domain.User) error {
	if user.UserID == "" {
		return errors.New("repository: Put user: userId is required")
	}
	item := map[string]types.AttributeValue{
		"userId":    &types.AttributeValueMemberS{Value: user.UserID},
		"createdAt": &types.AttributeValueMemberS{Value: timeValue(user.CreatedAt)},
		"status":    &types.AttributeValueMemberS{Value: user.Status},
	}
	if user.Email != "" {
		item["email"] = &types.AttributeValueMemberS{Value: user.Email}
	}
	_, err := u.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(u.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(userId)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Put user: %w", err)
	}
	return nil
}

func itemToUser(item map[string]types.AttributeValue) (domain.User, error) {
	userID, err := strAttr(item, "userId")
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{
		UserID:    userID,
		Email:     optStrAttr(item, "email"),
		CreatedAt: timeAttr(item, "createdAt"),
		Status:    optStrAttr(item, "status"),
	}, nil
}
