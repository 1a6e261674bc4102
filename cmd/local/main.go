// Command local invokes the handler in-process against real AWS resources,
// for exercising a turn without deploying.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"project-bridge/internal/app"
	"project-bridge/internal/config"
)

func main() {
	email := flag.String("email", "", "caller email")
	userID := flag.String("user", "", "caller user id (alternative to -email)")
	projectID := flag.String("project", "", "project id; omit to start a new project")
	input := flag.String("input", "", "user turn text")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "err", err)
	}

	ctx := context.Background()

	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}
	h, err := app.BuildHandler(cfg, awsCfg)
	if err != nil {
		slog.Error("failed to build handler", "err", err)
		os.Exit(1)
	}

	body, err := json.Marshal(map[string]string{
		"email":     *email,
		"userId":    *userID,
		"projectId": *projectID,
		"input":     *input,
	})
	if err != nil {
		slog.Error("failed to build request body", "err", err)
		os.Exit(1)
	}

	resp, err := h.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: "POST",
		Path:       "/chat",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	})
	if err != nil {
		slog.Error("invocation failed", "err", err)
		os.Exit(1)
	}

	fmt.Printf("status: %d\n%s\n", resp.StatusCode, resp.Body)
}
