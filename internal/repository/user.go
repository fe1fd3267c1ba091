package repository

import (
	"context"

	"pricepilot/internal/domain"
)

// UserRepository defines persistence operations for User documents.
// Every mutation is a single atomic statement against one user.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	UpdateProfileImage(ctx context.Context, id, image string) error
	// AddSavedProduct reports false when the product was already saved.
	AddSavedProduct(ctx context.Context, userID string, product domain.SavedProduct) (bool, error)
	// RemoveSavedProduct reports false when there was nothing to remove.
	RemoveSavedProduct(ctx context.Context, userID, productID string) (bool, error)
	ListSavedProducts(ctx context.Context, userID string) ([]domain.SavedProduct, error)
}
