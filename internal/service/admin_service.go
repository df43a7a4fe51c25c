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

// AdminLoginInput carries the administrator credentials.
type AdminLoginInput struct {
	UserID   string
	Password string
}

// AdminActionInput carries one administrative command.
type AdminActionInput struct {
	Time    int64
	Command string
}

// GlobalBasicInfo summarizes the service for operators.
type GlobalBasicInfo struct {
	TotalUserNum        int   `json:"totalUserNum"`
	ActiveUserSessions  int64 `json:"activeUserSessions"`
	ActiveAdminSessions int64 `json:"activeAdminSessions"`
}

// UserSummary is the operator view of one user record.
type UserSummary struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Platform int    `json:"plat,omitempty"`
	RegTime  int64  `json:"regTime"`
}

// AdminService backs the private admin surface.
type AdminService struct {
	admins     repository.AdminRepository
	users      repository.UserRepository
	ledger     repository.SessionRepository
	hasher     *auth.PasswordHasher
	sessions   *SessionIssuer
	dispatcher events.Dispatcher
	clock      clock.Clock
	logger     *zap.Logger
}

// AdminDependencies encapsulates collaborators of the admin service.
type AdminDependencies struct {
	Admins     repository.AdminRepository
	Users      repository.UserRepository
	Ledger     repository.SessionRepository
	Hasher     *auth.PasswordHasher
	Sessions   *SessionIssuer
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewAdminService builds the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AdminService{
		admins:     deps.Admins,
		users:      deps.Users,
		ledger:     deps.Ledger,
		hasher:     deps.Hasher,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
}

// EnsureAdmin stores the administrator account unless it already exists.
// An existing record keeps its secret.
func (s *AdminService) EnsureAdmin(ctx context.Context, id, password string) error {
	if id == "" || password == "" {
		return nil
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin secret: %w", err)
	}
	err = s.admins.Create(ctx, &domain.Admin{ID: id, PasswordHash: hash, CreatedAt: s.clock.Now().UTC()})
	switch {
	case err == nil:
		s.logger.Info("administrator seeded", zap.String("admin_id", id))
	case errors.Is(err, domain.ErrSubjectExists):
		s.logger.Debug("administrator already present", zap.String("admin_id", id))
	default:
		return err
	}
	return nil
}

// Ping returns the static acknowledgment.
func (s *AdminService) Ping() Result {
	return Result{Message: "pang"}
}

// Login verifies administrator credentials and returns the service summary.
func (s *AdminService) Login(ctx context.Context, in *AdminLoginInput) (*Result, error) {
	if in == nil {
		return nil, domain.MissingParam("UserLoginPack")
	}
	if in.UserID == "" {
		return nil, domain.MissingParam("userID")
	}
	if in.Password == "" {
		return nil, domain.MissingParam("loginPwd")
	}

	admin, err := s.admins.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrSubjectNotFound) {
			s.hasher.CompareMissing(in.Password)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(admin.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	token, err := s.sessions.Issue(ctx, admin.ID, "login")
	if err != nil {
		return nil, err
	}
	info, err := s.basicInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Message: "administrator signed in", Token: token, Data: info}, nil
}

// Action runs one administrative command and slides the admin session.
func (s *AdminService) Action(ctx context.Context, adminID string, in *AdminActionInput) (*Result, error) {
	if in == nil {
		return nil, domain.MissingParam("UserPostActionPack")
	}
	if in.Command == "" {
		return nil, domain.MissingParam("command")
	}
	if adminID == "" {
		return nil, errors.New("action requires an authenticated administrator")
	}

	command := domain.AdminCommandFor(in.Command)
	var (
		data any
		err  error
	)
	switch command {
	case domain.AdminCommandStats:
		data, err = s.basicInfo(ctx)
	case domain.AdminCommandUsers:
		data, err = s.userSummaries(ctx)
	case domain.AdminCommandEcho:
		data = EchoResult{Action: in.Command, Status: "executed"}
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.dispatcher, s.logger, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAdminCommand,
		SubjectID: adminID,
		Class:     domain.SubjectClassAdmin,
		Timestamp: s.clock.Now(),
		Payload:   events.AdminCommandPayload{Command: command, Received: in.Command},
	})

	token, err := s.sessions.Issue(ctx, adminID, "action")
	if err != nil {
		return nil, err
	}
	return &Result{Message: "administrator request succeeded", Token: token, Data: data}, nil
}

// Logout revokes the administrator's current token.
func (s *AdminService) Logout(ctx context.Context, principal *auth.Principal) (*Result, error) {
	if err := s.sessions.Revoke(ctx, principal); err != nil {
		return nil, err
	}
	return &Result{Message: "signed out"}, nil
}

func (s *AdminService) basicInfo(ctx context.Context) (GlobalBasicInfo, error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return GlobalBasicInfo{}, err
	}
	info := GlobalBasicInfo{TotalUserNum: total}
	if s.ledger == nil {
		return info, nil
	}

	now := s.clock.Now()
	if info.ActiveUserSessions, err = s.ledger.CountActive(ctx, domain.SubjectClassUser, now); err != nil {
		return GlobalBasicInfo{}, fmt.Errorf("count user sessions: %w", err)
	}
	if info.ActiveAdminSessions, err = s.ledger.CountActive(ctx, domain.SubjectClassAdmin, now); err != nil {
		return GlobalBasicInfo{}, fmt.Errorf("count admin sessions: %w", err)
	}
	return info, nil
}

func (s *AdminService) userSummaries(ctx context.Context) ([]UserSummary, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, UserSummary{
			UID:      u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Platform: u.Platform,
			RegTime:  u.RegisteredAt.UnixMilli(),
		})
	}
	return out, nil
}
