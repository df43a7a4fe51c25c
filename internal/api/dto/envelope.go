package dto

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// TokenInfo is the token block of a success envelope.
type TokenInfo struct {
	Value            string `json:"value"`
	ID               string `json:"id"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// SuccessResponse is returned by every successful action.
type SuccessResponse struct {
	Status    string     `json:"status"`
	Message   string     `json:"message"`
	Timestamp string     `json:"timestamp"`
	RequestID string     `json:"requestId"`
	Token     *TokenInfo `json:"token,omitempty"`
	Data      any        `json:"data,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Status    string         `json:"status"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Timestamp string         `json:"timestamp"`
	RequestID string         `json:"requestId"`
	Details   map[string]any `json:"details,omitempty"`
	Debug     *DebugInfo     `json:"debug,omitempty"`
}

// DebugInfo carries the underlying cause outside production.
type DebugInfo struct {
	Cause string `json:"cause"`
}
