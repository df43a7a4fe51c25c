package domain

import "time"

// User is an end-user registered through the mobile clients.
type User struct {
	ID             string
	Credential     string
	CredentialType string
	Name           string
	Email          string
	Platform       int
	PlatformUID    string
	PasswordHash   string
	RegisteredAt   time.Time
	// RequestedAt is the client clock value sent with the registration.
	RequestedAt int64
}
