package usecase

import "project-bridge/internal/domain"

// systemPrompt is the fixed persona sent with every completion request.
const systemPrompt = "You are a full stack freelance software developer. " +
	"You are able to ask for and understand details for software applications from non-technical people. " +
	"You are proficient in designing and implementing those end-to-end web and mobile applications on AWS, " +
	"writing the backend in Python and frontend in JavaScript."

// assembleContext projects the retained transcript down to the role/content
// pairs the completion service accepts, in original order, and appends the
// new user turn. Timestamps are storage metadata and are dropped here.
func assembleContext(conv domain.Conversation, newUserTurn string) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(conv.Messages)+1)
	for _, m := range conv.Messages {
		messages = append(messages, domain.ChatMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: newUserTurn,
	})
}
