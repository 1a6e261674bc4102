// Package secrets resolves the completion service's API credential from AWS
// SSM Parameter Store, once per process lifetime.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ssmAPI is the minimal AWS SSM interface required by Source.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// keyPayload is the expected JSON shape of the stored parameter value.
type keyPayload struct {
	APIKey string `json:"api_key"`
}

// Source fetches and caches the API key stored under
// <paramPrefix>/anthropic-api-key. The key is resolved on first use and
// reused for the lifetime of the process; a failed fetch is not cached, so
// warm invocations retry after a transient SSM error.
type Source struct {
	api         ssmAPI
	paramPrefix string

	mu     sync.Mutex
	apiKey string
}

// New creates a Source with the given SSM API implementation.
func New(api ssmAPI, paramPrefix string) (*Source, error) {
	if api == nil {
		return nil, errors.New("secrets: api must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("secrets: parameter prefix must not be empty")
	}
	return &Source{api: api, paramPrefix: paramPrefix}, nil
}

// APIKey returns the cached credential, fetching it from SSM on first call.
func (s *Source) APIKey(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.apiKey != "" {
		return s.apiKey, nil
	}

	name := s.paramPrefix + "/anthropic-api-key"
	withDecryption := true
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("secrets: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("secrets: parameter missing value")
	}

	var payload keyPayload
	if err := json.Unmarshal([]byte(*out.Parameter.Value), &payload); err != nil {
		return "", fmt.Errorf("secrets: unmarshal parameter value as JSON: %w", err)
	}
	if payload.APIKey == "" {
		return "", errors.New("secrets: API key is empty")
	}
	s.apiKey = payload.APIKey
	return s.apiKey, nil
}
