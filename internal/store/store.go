// Package store defines the persistence surface of the service. The
// relationship engine only sees relations.Store; account management and
// the industry catalog are used by the HTTP layer directly.
package store

import (
	"context"

	"linkup/backend/internal/models"
	"linkup/backend/internal/relations"
)

// Accounts manages individual and organization accounts.
type Accounts interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByLogin(ctx context.Context, login string) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error
	CreateOrganization(ctx context.Context, o *models.Organization) error
	ListOrganizationsByOwner(ctx context.Context, ownerID uint) ([]models.Organization, error)
}

// Industries manages the trade catalog.
type Industries interface {
	CreateIndustry(ctx context.Context, i *models.Industry) error
	GetIndustry(ctx context.Context, id uint) (*models.Industry, error)
	ListIndustries(ctx context.Context) ([]models.Industry, error)
	SaveIndustry(ctx context.Context, i *models.Industry) error
	DeleteIndustry(ctx context.Context, id uint) (int64, error)
}

// Store is implemented by gormstore and memstore.
type Store interface {
	relations.Store
	Accounts
	Industries
}
