package domain

import "time"

// Admin is an operator allowed on the private admin surface.
type Admin struct {
	ID           string
	PasswordHash string
	CreatedAt    time.Time
}
