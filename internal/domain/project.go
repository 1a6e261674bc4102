package domain

import "time"

// Project statuses. IN_PROGRESS is written on creation; other values are
// set only through the explicit status-update operation.
const (
	ProjectStatusInProgress = "IN_PROGRESS"
	ProjectStatusComplete   = "COMPLETE"
)

// Project is a persisted project record under the composite key
// (ProjectID, UserID). ConversationLocation points at the transcript blob
// and is rewritten together with UpdatedAt on every committed turn.
type Project struct {
	ProjectID            string
	UserID               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Status               string
	ConversationLocation string
}
