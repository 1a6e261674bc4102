package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"project-bridge/internal/domain"
)

const (
	defaultTokenBudget   = 3000
	defaultTokensPerWord = 1.3
	trimFloor            = 2 // always keep at least the most recent exchange
)

// s3API is the minimal S3 interface required by Conversations.
// Defined here for testability.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// TokenEstimator approximates the token cost of message content. The default
// word-count heuristic can be swapped for a real tokenizer without touching
// the trimming algorithm.
type TokenEstimator interface {
	EstimateTokens(content string) float64
}

// WordCountEstimator estimates tokens as word count times a fixed multiplier.
type WordCountEstimator struct {
	TokensPerWord float64
}

func (e WordCountEstimator) EstimateTokens(content string) float64 {
	perWord := e.TokensPerWord
	if perWord <= 0 {
		perWord = defaultTokensPerWord
	}
	return float64(len(strings.Fields(content))) * perWord
}

// Conversations stores transcripts as whole JSON objects in an S3 bucket.
// There is no partial append: every save rewrites the full blob, which keeps
// a save atomic from the caller's perspective at O(n) write cost per turn,
// bounded in practice by the trimming policy.
type Conversations struct {
	api         s3API
	bucket      string
	estimator   TokenEstimator
	tokenBudget float64
	trim        bool
	now         func() time.Time
}

// ConversationsOption configures a Conversations store.
type ConversationsOption func(*Conversations)

// WithTokenBudget overrides the trimming budget, in estimated tokens.
func WithTokenBudget(budget float64) ConversationsOption {
	return func(c *Conversations) {
		if budget > 0 {
			c.tokenBudget = budget
		}
	}
}

// WithTrimming toggles budget enforcement on load.
func WithTrimming(enabled bool) ConversationsOption {
	return func(c *Conversations) {
		c.trim = enabled
	}
}

// WithEstimator swaps the token estimator.
func WithEstimator(est TokenEstimator) ConversationsOption {
	return func(c *Conversations) {
		if est != nil {
			c.estimator = est
		}
	}
}

// NewConversations creates a transcript store over the given bucket.
func NewConversations(api s3API, bucket string, opts ...ConversationsOption) (*Conversations, error) {
	if api == nil {
		return nil, errors.New("repository: s3 api must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("repository: conversation bucket must not be empty")
	}
	c := &Conversations{
		api:         api,
		bucket:      bucket,
		estimator:   WordCountEstimator{TokensPerWord: defaultTokensPerWord},
		tokenBudget: defaultTokenBudget,
		trim:        true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Key returns the deterministic blob key for a (user, project) pair.
func (c *Conversations) Key(userID, projectID string) string {
	return userID + "/" + projectID + "/conversation.json"
}

// Location returns the full URI written to the project record's pointer.
func (c *Conversations) Location(userID, projectID string) string {
	return "s3://" + c.bucket + "/" + c.Key(userID, projectID)
}

// Load fetches the transcript for a (user, project) pair. A missing blob is
// the expected steady state for a brand-new project and yields a fresh empty
// conversation; any other storage failure propagates. When trimming is
// enabled the retained transcript is cut to the token budget before return.
func (c *Conversations) Load(ctx context.Context, userID, projectID string) (domain.Conversation, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.Key(userID, projectID)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return domain.NewConversation(c.now().UTC()), nil
		}
		return domain.Conversation{}, fmt.Errorf("repository: Load conversation: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: Load read body: %w", err)
	}
	var conv domain.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("repository: Load decode conversation: %w", err)
	}
	if c.trim {
		conv.Messages = trimToBudget(conv.Messages, c.estimator, c.tokenBudget)
	}
	return conv, nil
}

// Save serializes the full transcript and overwrites the blob.
func (c *Conversations) Save(ctx context.Context, userID, projectID string, conv domain.Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("repository: Save encode conversation: %w", err)
	}
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(c.Key(userID, projectID)),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("repository: Save conversation: %w", err)
	}
	return nil
}

// trimToBudget drops messages from the oldest end, recomputing the running
// total after each removal, until the estimate is under budget or only the
// floor remains.
func trimToBudget(msgs []domain.Message, est TokenEstimator, budget float64) []domain.Message {
	total := 0.0
	for _, m := range msgs {
		total += est.EstimateTokens(m.Content)
	}
	for total > budget && len(msgs) > trimFloor {
		total -= est.EstimateTokens(msgs[0].Content)
		msgs = msgs[1:]
	}
	return msgs
}
