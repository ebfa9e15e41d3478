package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/api/metrics"
	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

const (
	nearbyDefaultDistance = 5000 // meters
	nearbyLimit           = 50
	forwardTimeout        = 15 * time.Second
)

// AlertService implements the alert lifecycle: creation, forwarding to the
// target agency, citizen reads and agency write-backs.
type AlertService struct {
	alerts    ports.AlertRepository
	agencies  ports.AgencyRepository
	forwarder ports.Forwarder
	log       zerolog.Logger
	now       func() time.Time

	// background runs the post-create forwarding. Swapped for a
	// synchronous runner in tests.
	background func(fn func())
}

func NewAlertService(
	alerts ports.AlertRepository,
	agencies ports.AgencyRepository,
	forwarder ports.Forwarder,
	log zerolog.Logger,
) *AlertService {
	return &AlertService{
		alerts:     alerts,
		agencies:   agencies,
		forwarder:  forwarder,
		log:        log,
		now:        time.Now,
		background: func(fn func()) { go fn() },
	}
}

// Create stores the alert and hands it to the target agency. Forwarding is
// detached from the request: a dead agency backend never fails the create,
// the failure is recorded as a system comment instead.
func (s *AlertService) Create(ctx context.Context, citizenID string, input ports.CreateAlertInput) (*domain.Alert, error) {
	if len(input.Coordinates) != 2 {
		return nil, domain.ErrMissingCoordinates
	}
	if len(input.Proofs) == 0 {
		return nil, domain.ErrMissingProofs
	}

	agency, err := s.agencies.FindByID(ctx, input.ServiceID)
	if err != nil {
		return nil, domain.ErrServiceInactive
	}
	if !agency.IsActive {
		return nil, domain.ErrServiceInactive
	}

	now := s.now().UTC()
	alert := &domain.Alert{
		CreatedBy:   citizenID,
		ServiceID:   agency.ID,
		Category:    input.Category,
		Description: input.Description,
		Location: domain.Location{
			GeoPoint: domain.NewGeoPoint(input.Coordinates),
			Address:  input.Address,
		},
		Proofs:      input.Proofs,
		IsAnonymous: input.IsAnonymous,
		Status:      domain.StatusPending,
		StatusHistory: []domain.StatusHistoryEntry{{
			Status:    domain.StatusPending,
			Comment:   "Alerte créée",
			UpdatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !input.IsAnonymous {
		alert.CitizenID = citizenID
	}

	created, err := s.alerts.Insert(ctx, alert)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to insert alert")
		return nil, err
	}

	metrics.AlertsCreatedTotal.WithLabelValues(agency.Endpoint, strconv.FormatBool(input.IsAnonymous)).Inc()
	s.log.Info().
		Str("alert_id", created.ID).
		Str("service", agency.Endpoint).
		Bool("anonymous", input.IsAnonymous).
		Msg("alert created")

	s.background(func() { s.forwardNewAlert(agency, created) })

	return created, nil
}

// forwardNewAlert runs outside the request context so the client's
// disconnect cannot cancel the hand-off.
func (s *AlertService) forwardNewAlert(agency *domain.Agency, alert *domain.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
	defer cancel()

	start := time.Now()
	refID, err := s.forwarder.ForwardAlert(ctx, agency, alert)
	metrics.ForwardingDuration.WithLabelValues(agency.Endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ForwardingsTotal.WithLabelValues(agency.Endpoint, "error").Inc()
		s.log.Error().Err(err).
			Str("alert_id", alert.ID).
			Str("service", agency.Endpoint).
			Msg("alert forwarding failed")

		comment := domain.Comment{
			Text:      fmt.Sprintf("Échec de la transmission au service. Raison: %s", err.Error()),
			Author:    domain.CommentAuthorSystem,
			CreatedAt: s.now().UTC(),
		}
		if cErr := s.alerts.AppendComment(ctx, alert.ID, comment); cErr != nil {
			s.log.Error().Err(cErr).Str("alert_id", alert.ID).Msg("failed to record forwarding failure")
		}
		return
	}

	metrics.ForwardingsTotal.WithLabelValues(agency.Endpoint, "ok").Inc()

	if refID != "" {
		if err := s.alerts.SetServiceReference(ctx, alert.ID, refID); err != nil {
			s.log.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to store service reference")
		}
	}
}

func (s *AlertService) ListByCitizen(ctx context.Context, citizenID string) ([]*domain.Alert, error) {
	if citizenID == "" {
		return []*domain.Alert{}, nil
	}
	return s.alerts.FindByCitizen(ctx, citizenID)
}

func (s *AlertService) GetByID(ctx context.Context, alertID, citizenID string) (*domain.Alert, error) {
	alert, err := s.alerts.FindByID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if citizenID != "" && !alert.OwnedBy(citizenID) {
		return nil, domain.ErrAccessDenied
	}
	return alert, nil
}

// AddComment appends a citizen comment and relays it to the agency. The
// relay is best effort: its failure is logged and otherwise ignored.
func (s *AlertService) AddComment(ctx context.Context, alertID, citizenID, text string) (*domain.Alert, error) {
	alert, err := s.GetByID(ctx, alertID, citizenID)
	if err != nil {
		return nil, err
	}

	comment := domain.Comment{
		Text:      text,
		Author:    domain.CommentAuthorCitizen,
		AuthorID:  citizenID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.alerts.AppendComment(ctx, alert.ID, comment); err != nil {
		return nil, err
	}
	alert.Comments = append(alert.Comments, comment)

	if agency, err := s.agencies.FindByID(ctx, alert.ServiceID); err == nil {
		if err := s.forwarder.ForwardComment(ctx, agency, alert, comment); err != nil {
			s.log.Error().Err(err).
				Str("alert_id", alert.ID).
				Str("service", agency.Endpoint).
				Msg("comment relay failed")
		}
	} else {
		s.log.Error().Err(err).Str("alert_id", alert.ID).Msg("comment relay skipped, agency lookup failed")
	}

	return alert, nil
}

func (s *AlertService) ListByCategory(ctx context.Context, category string) ([]*domain.Alert, error) {
	return s.alerts.FindByCategory(ctx, category)
}

// Nearby returns non-anonymous alerts around the given [longitude, latitude]
// point, capped at 50 results.
func (s *AlertService) Nearby(ctx context.Context, coordinates []float64, maxDistanceMeters int) ([]*domain.Alert, error) {
	if len(coordinates) != 2 {
		return nil, domain.ErrMissingCoordinates
	}
	if maxDistanceMeters <= 0 {
		maxDistanceMeters = nearbyDefaultDistance
	}
	return s.alerts.FindNearby(ctx, coordinates, maxDistanceMeters, nearbyLimit)
}

// UpdateStatus records an agency-reported transition. Every write lands in
// the append-only history; order is not enforced.
func (s *AlertService) UpdateStatus(ctx context.Context, input ports.StatusUpdateInput) (*domain.Alert, error) {
	if !input.Status.Valid() {
		return nil, fmt.Errorf("invalid status %q", input.Status)
	}

	alert, err := s.alerts.FindByID(ctx, input.AlertID)
	if err != nil {
		return nil, err
	}

	entry := domain.StatusHistoryEntry{
		Status:    input.Status,
		Comment:   input.Comment,
		UpdatedBy: input.UpdatedBy,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.alerts.AppendStatus(ctx, alert.ID, entry); err != nil {
		return nil, err
	}

	metrics.WebhookUpdatesTotal.WithLabelValues("status").Inc()
	s.log.Info().
		Str("alert_id", alert.ID).
		Str("status", string(input.Status)).
		Str("updated_by", input.UpdatedBy).
		Msg("alert status updated")

	alert.Status = input.Status
	alert.StatusHistory = append(alert.StatusHistory, entry)
	alert.UpdatedAt = entry.UpdatedAt
	return alert, nil
}

// ReceiveExternalComment appends a comment written by an agency back-office.
func (s *AlertService) ReceiveExternalComment(ctx context.Context, input ports.ExternalCommentInput) (*domain.Alert, error) {
	alert, err := s.alerts.FindByID(ctx, input.AlertID)
	if err != nil {
		return nil, err
	}

	author := input.Author
	if author == "" {
		// Agents get a distinct byline from the agency itself.
		if input.AuthorType == "agent" {
			author = "Agent service hygiène"
		} else {
			author = "Service hygiène"
		}
	}
	comment := domain.Comment{
		Text:      input.Text,
		Author:    author,
		AuthorID:  input.AuthorID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.alerts.AppendComment(ctx, alert.ID, comment); err != nil {
		return nil, err
	}

	metrics.WebhookUpdatesTotal.WithLabelValues("comment").Inc()

	alert.Comments = append(alert.Comments, comment)
	return alert, nil
}
