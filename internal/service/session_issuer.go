package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarothouse/backend/internal/auth"
	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/domain"
	"github.com/tarothouse/backend/internal/events"
	"github.com/tarothouse/backend/internal/repository"
)

// Result is what every action handler hands back to the transport layer.
// Token is nil for operations that do not mint one (ping, logout).
type Result struct {
	Message string
	Token   *auth.IssuedToken
	Data    any
}

// SessionIssuer mints tokens for one subject class and keeps the session
// ledger in step. Recording is best effort: a ledger failure is logged and
// the freshly signed token is still returned.
type SessionIssuer struct {
	tokens     *auth.TokenManager
	sessions   repository.SessionRepository
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// NewSessionIssuer wires the issuer. sessions and dispatcher may be nil.
func NewSessionIssuer(tokens *auth.TokenManager, sessions repository.SessionRepository, dispatcher events.Dispatcher, clk clock.Clock, logger *zap.Logger) *SessionIssuer {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionIssuer{
		tokens:     tokens,
		sessions:   sessions,
		dispatcher: dispatcher,
		clock:      clk,
		logger:     logger,
	}
}

// Class reports the subject class served.
func (s *SessionIssuer) Class() domain.SubjectClass {
	return s.tokens.Class()
}

// Issue signs a new token for subjectID. reason names the calling operation
// in the audit trail.
func (s *SessionIssuer) Issue(ctx context.Context, subjectID, reason string) (*auth.IssuedToken, error) {
	issued, err := s.tokens.Issue(subjectID)
	if err != nil {
		return nil, err
	}

	if s.sessions != nil {
		if err := s.sessions.Record(ctx, issued.Session(subjectID, s.Class())); err != nil {
			s.logger.Warn("record session failed",
				zap.String("subject_id", subjectID),
				zap.String("token_id", issued.ID),
				zap.Error(err))
		}
	}

	s.publish(ctx, events.EventSessionIssued, subjectID, events.SessionPayload{
		TokenID:   issued.ID,
		ExpiresAt: issued.ExpiresAt,
		Reason:    reason,
	})
	return &issued, nil
}

// Revoke invalidates the principal's token until it would have expired.
func (s *SessionIssuer) Revoke(ctx context.Context, principal *auth.Principal) error {
	if principal == nil {
		return errors.New("revoke requires an authenticated principal")
	}
	if s.sessions == nil {
		return errors.New("session registry not configured")
	}
	if err := s.sessions.Revoke(ctx, principal.TokenID, principal.ExpiresAt); err != nil {
		return err
	}
	s.publish(ctx, events.EventSessionRevoked, principal.SubjectID, events.SessionPayload{
		TokenID:   principal.TokenID,
		ExpiresAt: principal.ExpiresAt,
		Reason:    "logout",
	})
	return nil
}

func (s *SessionIssuer) publish(ctx context.Context, typ events.EventType, subjectID string, payload any) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		SubjectID: subjectID,
		Class:     s.Class(),
		Timestamp: s.clock.Now(),
		Payload:   payload,
	})
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("publish event failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
