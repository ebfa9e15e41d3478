package ports

import (
	"context"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

// CreateAlertInput is the validated payload for a new incident alert.
// Proofs are already stored media descriptors, produced by UploadService.
type CreateAlertInput struct {
	ServiceID   string
	Category    string
	Description string
	Coordinates []float64 // [longitude, latitude]
	Address     string
	IsAnonymous bool
	Proofs      []domain.Proof
}

// StatusUpdateInput carries a status transition reported by an agency.
type StatusUpdateInput struct {
	AlertID   string
	Status    domain.AlertStatus
	Comment   string
	UpdatedBy string
}

// ExternalCommentInput is a comment relayed back by an agency.
// AuthorType distinguishes a field agent from the agency back-office and
// drives the fallback display name when Author is empty.
type ExternalCommentInput struct {
	AlertID    string
	Text       string
	Author     string
	AuthorID   string
	AuthorType string
}

// AlertService implements the incident alert lifecycle.
type AlertService interface {
	// Create stores the alert and forwards it to the target agency in the
	// background. Forwarding failures never fail the create.
	Create(ctx context.Context, citizenID string, input CreateAlertInput) (*domain.Alert, error)
	ListByCitizen(ctx context.Context, citizenID string) ([]*domain.Alert, error)
	// GetByID enforces ownership: only the creator may read an alert.
	GetByID(ctx context.Context, alertID, citizenID string) (*domain.Alert, error)
	// AddComment appends a citizen comment and relays it to the agency on
	// a best-effort basis.
	AddComment(ctx context.Context, alertID, citizenID, text string) (*domain.Alert, error)
	ListByCategory(ctx context.Context, category string) ([]*domain.Alert, error)
	// Nearby returns non-anonymous alerts within maxDistance meters of
	// the given [longitude, latitude] point, capped at 50.
	Nearby(ctx context.Context, coordinates []float64, maxDistanceMeters int) ([]*domain.Alert, error)
	// UpdateStatus records a transition in the append-only history. Used
	// by agency webhooks.
	UpdateStatus(ctx context.Context, input StatusUpdateInput) (*domain.Alert, error)
	// ReceiveExternalComment appends an agency-authored comment.
	ReceiveExternalComment(ctx context.Context, input ExternalCommentInput) (*domain.Alert, error)
}
