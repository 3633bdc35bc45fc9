package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system. Identity issuance lives outside this
// service; the draft core only resolves session tokens to users.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}
