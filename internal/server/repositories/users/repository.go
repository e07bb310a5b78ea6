package users

import (
	"context"

	"github.com/dmitrijs2005/filevault/internal/server/models"
)

// Repository persists user accounts. Email lookups are case-insensitive;
// implementations must enforce email uniqueness.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
