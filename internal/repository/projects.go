package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"project-bridge/internal/domain"
)

// Projects wraps the DynamoDB projects table, keyed by the composite
// (projectId, userId) pair.
type Projects struct {
	api       dynamodbAPI
	tableName string
}

// NewProjects creates a Projects store for the given table.
func NewProjects(api dynamodbAPI, tableName string) (*Projects, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: projects table name must not be empty")
	}
	return &Projects{api: api, tableName: tableName}, nil
}

func projectKey(projectID, userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"projectId": &types.AttributeValueMemberS{Value: projectID},
		"userId":    &types.AttributeValueMemberS{Value: userID},
	}
}

// Get fetches a project by composite key. Returns ErrNotFound when absent.
func (p *Projects) Get(ctx context.Context, projectID, userID string) (domain.Project, error) {
	out, err := p.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(p.tableName),
		Key:       projectKey(projectID, userID),
	})
	if err != nil {
		return domain.Project{}, fmt.Errorf("repository: Get project: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Project{}, fmt.Errorf("repository: project %q for user %q: %w", projectID, userID, ErrNotFound)
	}
	return itemToProject(out.Item)
}

// Put inserts a new project record.
func (p *Projects) Put(ctx context.Context, project domain.Project) error {
	if project.ProjectID == "" || project.UserID == "" {
		return errors.New("repository: Put project: projectId and userId are required")
	}
	_, err := p.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.tableName),
		Item: map[string]types.AttributeValue{
			"projectId": &types.AttributeValueMemberS{Value: project.ProjectID},
			"userId":    &types.AttributeValueMemberS{Value: project.UserID},
			"createdAt": &types.AttributeValueMemberS{Value: timeValue(project.CreatedAt)},
			"updatedAt": &types.AttributeValueMemberS{Value: timeValue(project.UpdatedAt)},
			"status":    &types.AttributeValueMemberS{Value: project.Status},
		},
		ConditionExpression: aws.String("attribute_not_exists(projectId) AND attribute_not_exists(userId)"),
	})
	if err != nil {
		return fmt.Errorf("repository: Put project: %w", err)
	}
	return nil
}

// SetConversationLocation updates the transcript pointer and updatedAt on an
// existing project without rewriting the rest of the record.
func (p *Projects) SetConversationLocation(ctx context.Context, projectID, userID, location string, updatedAt time.Time) error {
	_, err := p.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(p.tableName),
		Key:              projectKey(projectID, userID),
		UpdateExpression: aws.String("SET conversationLocation = :loc, updatedAt = :ts"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":loc": &types.AttributeValueMemberS{Value: location},
			":ts":  &types.AttributeValueMemberS{Value: timeValue(updatedAt)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SetConversationLocation: %w", err)
	}
	return nil
}

// UpdateStatus sets the project status and updatedAt. The attribute name is
// aliased because status is a DynamoDB reserved word.
func (p *Projects) UpdateStatus(ctx context.Context, projectID, userID, status string) error {
	_, err := p.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(p.tableName),
		Key:              projectKey(projectID, userID),
		UpdateExpression: aws.String("SET #status = :status, updatedAt = :ts"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: status},
			":ts":     &types.AttributeValueMemberS{Value: timeValue(time.Now())},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: UpdateStatus: %w", err)
	}
	return nil
}

func itemToProject(item map[string]types.AttributeValue) (domain.Project, error) {
	projectID, err := strAttr(item, "projectId")
	if err != nil {
		return domain.Project{}, err
	}
	userID, err := strAttr(item, "userId")
	if err != nil {
		return domain.Project{}, err
	}
	return domain.Project{
		ProjectID:            projectID,
		UserID:               userID,
		CreatedAt:            timeAttr(item, "createdAt"),
		UpdatedAt:            timeAttr(item, "updatedAt"),
		Status:               optStrAttr(item, "status"),
		ConversationLocation: optStrAttr(item, "conversationLocation"),
	}, nil
}
