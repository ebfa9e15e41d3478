package ports

import (
	"context"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// AlertRepository defines persistence operations for alerts. Comment and
// status writes are single-document $push updates: the store's per-document
// atomicity is the only mutual exclusion in the system.
type AlertRepository interface {
	Insert(ctx context.Context, alert *domain.Alert) (*domain.Alert, error)
	FindByID(ctx context.Context, id string) (*domain.Alert, error)
	// FindByCitizen returns alerts where citizen_id OR created_by matches,
	// newest first, so creators see their anonymous alerts too.
	FindByCitizen(ctx context.Context, citizenID string) ([]*domain.Alert, error)
	FindByCategory(ctx context.Context, category string) ([]*domain.Alert, error)
	// FindNearby runs a geospatial $near query. Anonymous alerts are
	// excluded; results are newest first and capped at limit.
	FindNearby(ctx context.Context, coordinates []float64, maxDistanceMeters int, limit int) ([]*domain.Alert, error)
	AppendComment(ctx context.Context, alertID string, comment domain.Comment) error
	// AppendStatus atomically sets the current status and appends the
	// history entry in one document write.
	AppendStatus(ctx context.Context, alertID string, entry domain.StatusHistoryEntry) error
	SetServiceReference(ctx context.Context, alertID, referenceID string) error
}
