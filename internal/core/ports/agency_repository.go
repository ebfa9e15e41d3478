package ports

import (
	"context"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// AgencyRepository defines persistence operations for the downstream
// service catalog.
type AgencyRepository interface {
	FindActive(ctx context.Context) ([]*domain.Agency, error)
	FindByID(ctx context.Context, id string) (*domain.Agency, error)
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, agencies []*domain.Agency) ([]*domain.Agency, error)
	SetAvailability(ctx context.Context, id string, available bool) error
}
