package domain

import "time"

// UserStatusActive is the only user status this flow ever writes.
const UserStatusActive = "ACTIVE"

// User is a persisted user record, keyed by UserID. Created on first sight
// of an external identifier and never mutated afterwards.
type User struct {
	UserID    string
	Email     string
	CreatedAt time.Time
	Status    string
}
