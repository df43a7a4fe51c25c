package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tarothouse/backend/internal/domain"
	"github.com/tarothouse/backend/internal/store"
)

// AdminRepository handles persistence for administrators.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) error
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
}

type adminDocument struct {
	ID           string    `json:"_id"`
	AdminID      string    `json:"adminId"`
	PasswordHash string    `json:"pwdHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

type adminRepository struct {
	store store.Store
}

// NewAdminRepository instantiates the repository.
func NewAdminRepository(s store.Store) AdminRepository {
	return &adminRepository{store: s}
}

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	doc, err := store.Encode(adminDocument{
		ID:           admin.ID,
		AdminID:      admin.ID,
		PasswordHash: admin.PasswordHash,
		CreatedAt:    admin.CreatedAt,
	})
	if err != nil {
		return err
	}
	if _, err := r.store.Insert(ctx, AdminsCollection, doc); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return domain.ErrSubjectExists
		}
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	doc, err := r.store.FindOne(ctx, AdminsCollection, store.Filter{adminUniqueField: id})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	var d adminDocument
	if err := store.Decode(doc, &d); err != nil {
		return nil, err
	}
	return &domain.Admin{ID: d.AdminID, PasswordHash: d.PasswordHash, CreatedAt: d.CreatedAt}, nil
}
