// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account record. The password hash never leaves the server:
// handlers copy Users into response DTOs that omit it.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
