package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tarothouse/backend/internal/domain"
	"github.com/tarothouse/backend/internal/store"
)

// Collection names and their unique fields.
const (
	UsersCollection  = "users"
	AdminsCollection = "admins"

	userUniqueField  = "cred"
	adminUniqueField = "adminId"
)

// Indexes lists the unique fields every store driver must enforce.
func Indexes() []store.Index {
	return []store.Index{
		{Collection: UsersCollection, Field: userUniqueField},
		{Collection: AdminsCollection, Field: adminUniqueField},
	}
}

// UserRepository defines persistence access for end-users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByCredential(ctx context.Context, credential string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (int, error)
}

type userDocument struct {
	ID             string    `json:"_id"`
	Credential     string    `json:"cred"`
	CredentialType string    `json:"credID,omitempty"`
	Name           string    `json:"name"`
	Email          string    `json:"email,omitempty"`
	Platform       int       `json:"plat,omitempty"`
	PlatformUID    string    `json:"platUID,omitempty"`
	PasswordHash   string    `json:"pwdHash"`
	RegisteredAt   time.Time `json:"registeredAt"`
	RequestedAt    int64     `json:"time,omitempty"`
}

type userRepository struct {
	store store.Store
}

// NewUserRepository returns a store-backed implementation.
func NewUserRepository(s store.Store) UserRepository {
	return &userRepository{store: s}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	doc, err := store.Encode(userDocument{
		ID:             user.ID,
		Credential:     user.Credential,
		CredentialType: user.CredentialType,
		Name:           user.Name,
		Email:          user.Email,
		Platform:       user.Platform,
		PlatformUID:    user.PlatformUID,
		PasswordHash:   user.PasswordHash,
		RegisteredAt:   user.RegisteredAt,
		RequestedAt:    user.RequestedAt,
	})
	if err != nil {
		return err
	}

	id, err := r.store.Insert(ctx, UsersCollection, doc)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return domain.ErrSubjectExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	return nil
}

func (r *userRepository) GetByCredential(ctx context.Context, credential string) (*domain.User, error) {
	doc, err := r.store.FindOne(ctx, UsersCollection, store.Filter{userUniqueField: credential})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return decodeUser(doc)
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	docs, err := r.store.FindAll(ctx, UsersCollection)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, doc := range docs {
		user, err := decodeUser(doc)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	docs, err := r.store.FindAll(ctx, UsersCollection)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return len(docs), nil
}

func decodeUser(doc store.Document) (*domain.User, error) {
	var d userDocument
	if err := store.Decode(doc, &d); err != nil {
		return nil, err
	}
	return &domain.User{
		ID:             d.ID,
		Credential:     d.Credential,
		CredentialType: d.CredentialType,
		Name:           d.Name,
		Email:          d.Email,
		Platform:       d.Platform,
		PlatformUID:    d.PlatformUID,
		PasswordHash:   d.PasswordHash,
		RegisteredAt:   d.RegisteredAt,
		RequestedAt:    d.RequestedAt,
	}, nil
}
