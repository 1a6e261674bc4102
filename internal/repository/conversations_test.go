package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"project-bridge/internal/domain"
)

// fakeS3 is a hand-written fake implementing s3API for tests.
type fakeS3 struct {
	getBody []byte
	getErr  error
	putErr  error

	lastGetIn *s3.GetObjectInput
	lastPutIn *s3.PutObjectInput
	putBody   []byte
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.lastGetIn = in
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.getBody))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.lastPutIn = in
	if in.Body != nil {
		f.putBody, _ = io.ReadAll(in.Body)
	}
	return &s3.PutObjectOutput{}, f.putErr
}

func mustNewConversations(t *testing.T, api s3API, opts ...ConversationsOption) *Conversations {
	t.Helper()
	c, err := NewConversations(api, "conversation-bucket", opts...)
	require.NoError(t, err)
	return c
}

func msg(role, content string) domain.Message {
	return domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewConversations_Validation(t *testing.T) {
	_, err := NewConversations(nil, "bucket")
	require.Error(t, err)

	_, err = NewConversations(&fakeS3{}, " ")
	require.Error(t, err)
}

func TestConversationsKeyAndLocation(t *testing.T) {
	c := mustNewConversations(t, &fakeS3{})
	require.Equal(t, "u1/p1/conversation.json", c.Key("u1", "p1"))
	require.Equal(t, "s3://conversation-bucket/u1/p1/conversation.json", c.Location("u1", "p1"))
}

func TestConversationsLoad_MissingBlobIsEmptyConversation(t *testing.T) {
	api := &fakeS3{getErr: &types.NoSuchKey{}}
	c := mustNewConversations(t, api)

	conv, err := c.Load(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Empty(t, conv.Messages)
	require.False(t, conv.CreatedAt.IsZero())
}

func TestConversationsLoad_OtherErrorPropagates(t *testing.T) {
	api := &fakeS3{getErr: errors.New("access denied")}
	c := mustNewConversations(t, api)

	_, err := c.Load(context.Background(), "u1", "p1")
	require.Error(t, err)
	require.ErrorContains(t, err, "access denied")
}

func TestConversationsLoad_MalformedBlob(t *testing.T) {
	api := &fakeS3{getBody: []byte("not-json")}
	c := mustNewConversations(t, api)

	_, err := c.Load(context.Background(), "u1", "p1")
	require.Error(t, err)
}

func TestConversationsSaveThenLoad_RoundTrip(t *testing.T) {
	api := &fakeS3{}
	c := mustNewConversations(t, api)

	saved := domain.NewConversation(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	saved.Append(domain.RoleUser, "hello", time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC))
	saved.Append(domain.RoleAssistant, "hi there", time.Date(2026, 1, 1, 0, 0, 2, 0, time.UTC))

	require.NoError(t, c.Save(context.Background(), "u1", "p1", saved))
	require.Equal(t, "u1/p1/conversation.json", *api.lastPutIn.Key)
	require.Equal(t, "application/json", *api.lastPutIn.ContentType)

	api.getBody = api.putBody
	loaded, err := c.Load(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	require.Equal(t, saved.Messages, loaded.Messages)
}

func TestConversationsSave_ApiError(t *testing.T) {
	api := &fakeS3{putErr: errors.New("throttled")}
	c := mustNewConversations(t, api)

	err := c.Save(context.Background(), "u1", "p1", domain.Conversation{})
	require.Error(t, err)
}

func conversationBody(t *testing.T, msgs ...domain.Message) []byte {
	t.Helper()
	raw, err := json.Marshal(domain.Conversation{Messages: msgs})
	require.NoError(t, err)
	return raw
}

func TestConversationsLoad_TrimsOldestFirst(t *testing.T) {
	// m1 alone is over half the budget; removing it brings the total under.
	m1 := msg(domain.RoleUser, strings.Repeat("w ", 6))
	m2 := msg(domain.RoleAssistant, "a b")
	m3 := msg(domain.RoleUser, "c d")
	m4 := msg(domain.RoleAssistant, "e f")

	api := &fakeS3{getBody: conversationBody(t, m1, m2, m3, m4)}
	c := mustNewConversations(t, api, WithTokenBudget(10))

	conv, err := c.Load(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, []domain.Message{m2, m3, m4}, conv.Messages)
}

func TestConversationsLoad_TrimFloorKeepsLastExchange(t *testing.T) {
	msgs := []domain.Message{
		msg(domain.RoleUser, strings.Repeat("x ", 100)),
		msg(domain.RoleAssistant, strings.Repeat("y ", 100)),
		msg(domain.RoleUser, strings.Repeat("z ", 100)),
		msg(domain.RoleAssistant, strings.Repeat("q ", 100)),
	}
	api := &fakeS3{getBody: conversationBody(t, msgs...)}
	c := mustNewConversations(t, api, WithTokenBudget(1))

	conv, err := c.Load(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, msgs[2:], conv.Messages)
}

func TestConversationsLoad_UnderBudgetUntouched(t *testing.T) {
	msgs := []domain.Message{
		msg(domain.RoleUser, "short"),
		msg(domain.RoleAssistant, "also short"),
		msg(domain.RoleUser, "still short"),
	}
	api := &fakeS3{getBody: conversationBody(t, msgs...)}
	c := mustNewConversations(t, api, WithTokenBudget(3000))

	conv, err := c.Load(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Equal(t, msgs, conv.Messages)
}

func TestConversationsLoad_TrimmingDisabled(t *testing.T) {
	msgs := []domain.Message{
		msg(domain.RoleUser, strings.Repeat("x ", 100)),
		msg(domain.RoleAssistant, strings.Repeat("y ", 100)),
		msg(domain.RoleUser, strings.Repeat("z ", 100)),
	}
	api := &fakeS3{getBody: conversationBody(t, msgs...)}
	c := mustNewConversations(t, api, WithTokenBudget(1), WithTrimming(false))

	conv, err := c.Load(context.Background(), "u1", "p1")
	require.NoError(t, err)
	require.Len(t, conv.Messages, 3)
}

func TestWordCountEstimator(t *testing.T) {
	est := WordCountEstimator{TokensPerWord: 1.3}
	require.InDelta(t, 3.9, est.EstimateTokens("one two three"), 0.0001)
	require.Zero(t, est.EstimateTokens("   "))
}

func TestTrimToBudget_NeverBelowFloor(t *testing.T) {
	est := WordCountEstimator{TokensPerWord: 1.3}
	msgs := []domain.Message{
		msg(domain.RoleUser, strings.Repeat("a ", 50)),
		msg(domain.RoleAssistant, strings.Repeat("b ", 50)),
	}
	out := trimToBudget(msgs, est, 1)
	require.Len(t, out, 2)
}
