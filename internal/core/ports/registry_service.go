package ports

import (
	"context"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// RegistryService manages the catalog of municipal agencies.
type RegistryService interface {
	ListActive(ctx context.Context) ([]*domain.Agency, error)
	Get(ctx context.Context, serviceID string) (*domain.Agency, error)
	Categories(ctx context.Context, serviceID string) ([]domain.Category, error)
	// CheckAvailability probes the agency's health endpoint and persists
	// the observed availability.
	CheckAvailability(ctx context.Context, serviceID string) (bool, error)
	// Seed inserts the default agency catalog. It is a no-op when the
	// collection is already populated.
	Seed(ctx context.Context) (int, error)
}
