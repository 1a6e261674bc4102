package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"project-bridge/internal/domain"
	"project-bridge/internal/repository"
)

// UserStore is the users-table surface consumed by the chat flow.
type UserStore interface {
	GetByID(ctx context.Context, userID string) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	Put(ctx context.Context, user domain.User) error
}

// ProjectStore is the projects-table surface consumed by the chat flow.
type ProjectStore interface {
	Get(ctx context.Context, projectID, userID string) (domain.Project, error)
	Put(ctx context.Context, project domain.Project) error
	SetConversationLocation(ctx context.Context, projectID, userID, location string, updatedAt time.Time) error
}

// TranscriptStore loads and saves whole conversation transcripts.
type TranscriptStore interface {
	Load(ctx context.Context, userID, projectID string) (domain.Conversation, error)
	Save(ctx context.Context, userID, projectID string, conv domain.Conversation) error
	Location(userID, projectID string) string
}

// CompletionClient produces one assistant turn from a message sequence.
type CompletionClient interface {
	Complete(ctx context.Context, model, system string, messages []domain.ChatMessage) (string, error)
}

// ChatService runs one conversation turn end to end: resolve user, resolve
// project, load transcript, assemble context, complete, commit. Each call is
// a single synchronous unit of work; concurrent turns for the same project
// are not coordinated and the last save wins.
type ChatService struct {
	users       UserStore
	projects    ProjectStore
	transcripts TranscriptStore
	llm         CompletionClient
	model       string
	now         func() time.Time
}

type ChatInput struct {
	Email     string
	UserID    string
	ProjectID string
	Input     string
}

type ChatOutput struct {
	ProjectID string
	Response  string
}

func NewChatService(users UserStore, projects ProjectStore, transcripts TranscriptStore, llm CompletionClient, model string) (*ChatService, error) {
	if users == nil {
		return nil, errors.New("usecase: user store must not be nil")
	}
	if projects == nil {
		return nil, errors.New("usecase: project store must not be nil")
	}
	if transcripts == nil {
		return nil, errors.New("usecase: transcript store must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: completion client must not be nil")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("usecase: model must not be empty")
	}
	return &ChatService{
		users:       users,
		projects:    projects,
		transcripts: transcripts,
		llm:         llm,
		model:       model,
		now:         time.Now,
	}, nil
}

// Chat handles one turn. No side effects occur before validation passes, and
// no step retries: every failure propagates to the handler.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	input := strings.TrimSpace(in.Input)
	if input == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_input", nil)
	}
	email := strings.TrimSpace(in.Email)
	userID := strings.TrimSpace(in.UserID)
	if email == "" && userID == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "missing_identifier", nil)
	}

	user, err := s.resolveUser(ctx, email, userID)
	if err != nil {
		return ChatOutput{}, err
	}

	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		projectID = newUUID()
	}
	project, err := s.resolveProject(ctx, user.UserID, projectID)
	if err != nil {
		return ChatOutput{}, err
	}

	conv, err := s.transcripts.Load(ctx, user.UserID, project.ProjectID)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "transcript_load_error", err)
	}

	answer, err := s.llm.Complete(ctx, s.model, systemPrompt, assembleContext(conv, input))
	if err != nil {
		return ChatOutput{}, newError(ErrorUpstream, "completion_error", err)
	}

	if err := s.commitTurn(ctx, user.UserID, project.ProjectID, conv, input, answer); err != nil {
		return ChatOutput{}, err
	}

	return ChatOutput{
		ProjectID: project.ProjectID,
		Response:  answer,
	}, nil
}

// resolveUser maps an external identifier to a user record, creating one on
// first sight. An explicit userId is used directly as the record key; an
// email goes through the attribute lookup and gets a generated key.
func (s *ChatService) resolveUser(ctx context.Context, email, userID string) (domain.User, error) {
	var (
		user domain.User
		err  error
	)
	if userID != "" {
		user, err = s.users.GetByID(ctx, userID)
	} else {
		user, err = s.users.FindByEmail(ctx, email)
	}
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, newError(ErrorInternal, "user_lookup_error", err)
	}

	if userID == "" {
		userID = newUUID()
	}
	user = domain.User{
		UserID:    userID,
		Email:     email,
		CreatedAt: s.now().UTC(),
		Status:    domain.UserStatusActive,
	}
	if err := s.users.Put(ctx, user); err != nil {
		return domain.User{}, newError(ErrorInternal, "user_create_error", err)
	}
	return user, nil
}

// resolveProject fetches the project under the composite key, creating it
// with IN_PROGRESS status on first reference.
func (s *ChatService) resolveProject(ctx context.Context, userID, projectID string) (domain.Project, error) {
	project, err := s.projects.Get(ctx, projectID, userID)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Project{}, newError(ErrorInternal, "project_lookup_error", err)
	}

	now := s.now().UTC()
	project = domain.Project{
		ProjectID: projectID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Status:    domain.ProjectStatusInProgress,
	}
	if err := s.projects.Put(ctx, project); err != nil {
		return domain.Project{}, newError(ErrorInternal, "project_create_error", err)
	}
	return project, nil
}

// commitTurn appends the user and assistant turns, rewrites the transcript
// blob, and updates the project's pointer and timestamp. The two writes are
// not transactional: a pointer-update failure after a successful save leaves
// the transcript durable but the project record stale, which is logged
// distinguishably before the error propagates.
func (s *ChatService) commitTurn(ctx context.Context, userID, projectID string, conv domain.Conversation, input, answer string) error {
	now := s.now().UTC()
	conv.Append(domain.RoleUser, input, now)
	conv.Append(domain.RoleAssistant, answer, now)

	if err := s.transcripts.Save(ctx, userID, projectID, conv); err != nil {
		return newError(ErrorInternal, "transcript_save_error", err)
	}

	location := s.transcripts.Location(userID, projectID)
	if err := s.projects.SetConversationLocation(ctx, projectID, userID, location, now); err != nil {
		slog.ErrorContext(ctx, "project pointer update failed after transcript save",
			"userId", userID,
			"projectId", projectID,
			"conversationLocation", location,
			"err", err,
		)
		return newError(ErrorInternal, "project_pointer_update_error", err)
	}
	return nil
}

var newUUID = func() string {
	return uuid.NewString()
}
