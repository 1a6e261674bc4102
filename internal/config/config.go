// Package config holds the invocation-level configuration, read once at
// process start.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	UsersTable         string `env:"USERS_TABLE,required"`
	ProjectsTable      string `env:"PROJECTS_TABLE,required"`
	ConversationBucket string `env:"CONVERSATION_BUCKET,required"`
	ParamPrefix        string `env:"PARAM_PREFIX,required"`

	// Completion service
	Model           string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-5-sonnet-20241022"`
	MaxOutputTokens int    `env:"MAX_OUTPUT_TOKENS" envDefault:"3000"`

	// Context trimming
	MaxContextTokens float64 `env:"MAX_CONTEXT_TOKENS" envDefault:"3000"`
	TrimContext      bool    `env:"TRIM_CONTEXT" envDefault:"true"`
}

func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
