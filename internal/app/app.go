// Package app wires the external clients into a ready handler. Client
// lifecycle is owned by the entrypoint; components receive their
// dependencies and hold no global state.
package app

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"project-bridge/handler"
	"project-bridge/internal/config"
	"project-bridge/internal/integrations/anthropic"
	"project-bridge/internal/integrations/secrets"
	"project-bridge/internal/repository"
	"project-bridge/internal/usecase"
)

// BuildHandler constructs the full dependency graph for one process.
func BuildHandler(cfg *config.Config, awsCfg aws.Config) (*handler.Handler, error) {
	dynamoClient := awsdynamodb.NewFromConfig(awsCfg)

	users, err := repository.NewUsers(dynamoClient, cfg.UsersTable)
	if err != nil {
		return nil, err
	}
	projects, err := repository.NewProjects(dynamoClient, cfg.ProjectsTable)
	if err != nil {
		return nil, err
	}
	transcripts, err := repository.NewConversations(
		awss3.NewFromConfig(awsCfg),
		cfg.ConversationBucket,
		repository.WithTokenBudget(cfg.MaxContextTokens),
		repository.WithTrimming(cfg.TrimContext),
	)
	if err != nil {
		return nil, err
	}

	keySource, err := secrets.New(awsssm.NewFromConfig(awsCfg), cfg.ParamPrefix)
	if err != nil {
		return nil, err
	}
	llm, err := anthropic.NewClient(keySource, anthropic.WithMaxTokens(cfg.MaxOutputTokens))
	if err != nil {
		return nil, err
	}

	chat, err := usecase.NewChatService(users, projects, transcripts, llm, cfg.Model)
	if err != nil {
		return nil, err
	}
	return handler.NewHandler(chat)
}
