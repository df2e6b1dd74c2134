package models

import (
	"time"

	"github.com/google/uuid"
)

// Connection represents a user-registered external database.
// The password is stored encrypted and is never present on this model;
// it only exists decrypted inside a request-scoped ConnectionDescriptor.
type Connection struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Dialect   Dialect   `json:"dialect"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	User      string    `json:"user"`
	Database  string    `json:"database"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
