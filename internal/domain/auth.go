package domain

import "time"

// SubjectClass differentiates end-user and administrator sessions. Each class
// has its own signing secret and token TTL.
type SubjectClass string

const (
	SubjectClassUser  SubjectClass = "user"
	SubjectClassAdmin SubjectClass = "admin"
)

// Session describes one issued bearer token.
type Session struct {
	TokenID   string
	SubjectID string
	Class     SubjectClass
	IssuedAt  time.Time
	ExpiresAt time.Time
}
