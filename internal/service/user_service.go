package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tarothouse/backend/internal/auth"
	"github.com/tarothouse/backend/internal/clock"
	"github.com/tarothouse/backend/internal/domain"
	"github.com/tarothouse/backend/internal/events"
	"github.com/tarothouse/backend/internal/repository"
)

const userIDPrefix = "usr_"

// RegisterInput carries the fields of a registration request.
type RegisterInput struct {
	Time           int64
	Name           string
	Credential     string
	CredentialType string
	Password       string
	Email          string
	Platform       int
	PlatformUID    string
}

// LoginInput carries the fields of a user login request.
type LoginInput struct {
	Time       int64
	Credential string
	Password   string
}

// ActInput carries the fields of a protected user action.
type ActInput struct {
	Time int64
	Act  int
	Data any
}

// UserService coordinates end-user registration, login and actions.
type UserService struct {
	users      repository.UserRepository
	hasher     *auth.PasswordHasher
	sessions   *SessionIssuer
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// UserDependencies encapsulates collaborators of the user service.
type UserDependencies struct {
	Users      repository.UserRepository
	Hasher     *auth.PasswordHasher
	Sessions   *SessionIssuer
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.Users,
		hasher:     deps.Hasher,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// Ping returns the static acknowledgment.
func (s *UserService) Ping() Result {
	return Result{Message: "pang"}
}

// Register creates a user and signs them in.
func (s *UserService) Register(ctx context.Context, in *RegisterInput) (*Result, error) {
	if err := validateRegister(in); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByCredential(ctx, in.Credential); err == nil {
		return nil, domain.ErrSubjectExists
	} else if !errors.Is(err, domain.ErrSubjectNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}

	user := &domain.User{
		ID:             userIDPrefix + uuid.NewString(),
		Credential:     in.Credential,
		CredentialType: in.CredentialType,
		Name:           in.Name,
		Email:          in.Email,
		Platform:       in.Platform,
		PlatformUID:    in.PlatformUID,
		PasswordHash:   hash,
		RegisteredAt:   s.clock.Now().UTC(),
		RequestedAt:    in.Time,
	}
	// A concurrent registration may win between the lookup and the insert;
	// the store's unique index reports it as ErrSubjectExists.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSubjectRegistered,
		SubjectID: user.ID,
		Class:     domain.SubjectClassUser,
		Timestamp: s.clock.Now(),
		Payload:   events.RegisteredPayload{CredentialType: user.CredentialType, Platform: user.Platform},
	})

	token, err := s.sessions.Issue(ctx, user.ID, "register")
	if err != nil {
		return nil, err
	}
	return &Result{
		Message: "user registered and signed in",
		Token:   token,
		Data:    newUserProfile(user, s.clock.Now()),
	}, nil
}

// Login verifies a credential/secret pair. Unknown credentials and wrong
// secrets both yield ErrInvalidCredentials.
func (s *UserService) Login(ctx context.Context, in *LoginInput) (*Result, error) {
	if in == nil {
		return nil, domain.MissingParam("pack")
	}
	if in.Credential == "" {
		return nil, domain.MissingParam("cred")
	}
	if in.Password == "" {
		return nil, domain.MissingParam("pwd")
	}

	user, err := s.users.GetByCredential(ctx, in.Credential)
	if err != nil {
		if errors.Is(err, domain.ErrSubjectNotFound) {
			s.hasher.CompareMissing(in.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	token, err := s.sessions.Issue(ctx, user.ID, "login")
	if err != nil {
		return nil, err
	}
	return &Result{
		Message: "user signed in",
		Token:   token,
		Data:    newUserProfile(user, s.clock.Now()),
	}, nil
}

// Act runs one user action for a subject already verified by the gate and
// slides the session forward with a new token.
func (s *UserService) Act(ctx context.Context, subjectID string, in *ActInput) (*Result, error) {
	if in == nil {
		return nil, domain.MissingParam("pack")
	}
	if in.Act == 0 {
		return nil, domain.MissingParam("act")
	}
	if subjectID == "" {
		return nil, errors.New("act requires an authenticated subject")
	}

	var data any
	switch domain.ActionKindFor(in.Act) {
	case domain.ActionRanking:
		data = newRankingSnapshot(s.clock.Now())
	case domain.ActionHistory:
		data = newHistorySnapshot()
	case domain.ActionEcho:
		data = EchoResult{Action: in.Act, Status: "executed"}
	}

	token, err := s.sessions.Issue(ctx, subjectID, "act")
	if err != nil {
		return nil, err
	}
	return &Result{Message: "user request succeeded", Token: token, Data: data}, nil
}

// Logout revokes the token the principal authenticated with.
func (s *UserService) Logout(ctx context.Context, principal *auth.Principal) (*Result, error) {
	if err := s.sessions.Revoke(ctx, principal); err != nil {
		return nil, err
	}
	return &Result{Message: "signed out"}, nil
}

func validateRegister(in *RegisterInput) error {
	switch {
	case in == nil:
		return domain.MissingParam("regPack")
	case in.Time == 0:
		return domain.MissingParam("time")
	case in.Name == "":
		return domain.MissingParam("name")
	case in.Credential == "":
		return domain.MissingParam("cred")
	case in.Password == "":
		return domain.MissingParam("pwd")
	}
	return nil
}
