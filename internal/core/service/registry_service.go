package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

// RegistryService manages the catalog of municipal agencies citizens can
// report to.
type RegistryService struct {
	agencies  ports.AgencyRepository
	forwarder ports.Forwarder
	seed      []*domain.Agency
	log       zerolog.Logger
	now       func() time.Time
}

func NewRegistryService(
	agencies ports.AgencyRepository,
	forwarder ports.Forwarder,
	seed []*domain.Agency,
	log zerolog.Logger,
) *RegistryService {
	return &RegistryService{
		agencies:  agencies,
		forwarder: forwarder,
		seed:      seed,
		log:       log,
		now:       time.Now,
	}
}

func (s *RegistryService) ListActive(ctx context.Context) ([]*domain.Agency, error) {
	return s.agencies.FindActive(ctx)
}

func (s *RegistryService) Get(ctx context.Context, serviceID string) (*domain.Agency, error) {
	return s.agencies.FindByID(ctx, serviceID)
}

func (s *RegistryService) Categories(ctx context.Context, serviceID string) ([]domain.Category, error) {
	agency, err := s.agencies.FindByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if agency.Categories == nil {
		return []domain.Category{}, nil
	}
	return agency.Categories, nil
}

// CheckAvailability probes the agency health endpoint and persists the
// result. A probe failure marks the agency unavailable instead of erroring.
func (s *RegistryService) CheckAvailability(ctx context.Context, serviceID string) (bool, error) {
	agency, err := s.agencies.FindByID(ctx, serviceID)
	if err != nil {
		return false, err
	}

	available := s.forwarder.ProbeHealth(ctx, agency)
	if err := s.agencies.SetAvailability(ctx, agency.ID, available); err != nil {
		s.log.Error().Err(err).Str("service", agency.Endpoint).Msg("failed to persist availability")
		return available, err
	}

	s.log.Info().Str("service", agency.Endpoint).Bool("available", available).Msg("availability checked")
	return available, nil
}

// Seed inserts the default agency catalog when the collection is empty.
// Safe to call on every startup.
func (s *RegistryService) Seed(ctx context.Context) (int, error) {
	count, err := s.agencies.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.log.Debug().Int64("count", count).Msg("agency catalog already seeded")
		return 0, nil
	}

	now := s.now().UTC()
	for _, a := range s.seed {
		a.IsActive = true
		a.CreatedAt = now
		a.UpdatedAt = now
	}

	created, err := s.agencies.InsertMany(ctx, s.seed)
	if err != nil {
		return 0, err
	}

	s.log.Info().Int("count", len(created)).Msg("agency catalog seeded")
	return len(created), nil
}

// DefaultAgencies is the catalog installed on first boot. The API URLs are
// taken from configuration so each deployment points at its own backends.
func DefaultAgencies(hygieneURL, policeURL, douaneURL, gendarmerieURL string) []*domain.Agency {
	return []*domain.Agency{
		{
			Name:        "Service d'Hygiène",
			Description: "Signaler des problèmes d'hygiène, de déchets ou d'insalubrité",
			Icon:        "hygiene-icon.png",
			Color:       "#FFD600",
			Endpoint:    "hygiene",
			APIURL:      hygieneURL,
			Categories: []domain.Category{
				{Name: "Déchets", Description: "Déchets non collectés ou dépôts sauvages"},
				{Name: "Restaurant insalubre", Description: "Problèmes d'hygiène dans un restaurant"},
				{Name: "Eau insalubre", Description: "Problèmes liés à la qualité de l'eau"},
				{Name: "Nuisibles", Description: "Présence de rats, cafards ou autres nuisibles"},
				{Name: "Autre", Description: "Autre problème d'hygiène"},
			},
		},
		{
			Name:        "Police Nationale",
			Description: "Signaler des problèmes de sécurité ou des infractions",
			Icon:        "police-icon.png",
			Color:       "#00695C",
			Endpoint:    "police",
			APIURL:      policeURL,
			Categories: []domain.Category{
				{Name: "Vol", Description: "Signaler un vol"},
				{Name: "Agression", Description: "Signaler une agression"},
				{Name: "Vandalisme", Description: "Signaler un acte de vandalisme"},
				{Name: "Circulation", Description: "Problème de circulation ou stationnement"},
				{Name: "Autre", Description: "Autre problème de sécurité"},
			},
		},
		{
			Name:        "Douanes",
			Description: "Signaler des problèmes liés aux douanes ou au commerce illégal",
			Icon:        "douane-icon.png",
			Color:       "#D84315",
			Endpoint:    "douane",
			APIURL:      douaneURL,
			Categories: []domain.Category{
				{Name: "Contrebande", Description: "Suspicion de contrebande"},
				{Name: "Produits contrefaits", Description: "Vente de produits contrefaits"},
				{Name: "Commerce illégal", Description: "Activité commerciale non déclarée"},
				{Name: "Autre", Description: "Autre problème lié aux douanes"},
			},
		},
		{
			Name:        "Gendarmerie",
			Description: "Signaler des problèmes de sécurité en zone rurale ou périurbaine",
			Icon:        "gendarmerie-icon.png",
			Color:       "#004D40",
			Endpoint:    "gendarmerie",
			APIURL:      gendarmerieURL,
			Categories: []domain.Category{
				{Name: "Sécurité routière", Description: "Problème de sécurité routière"},
				{Name: "Ordre public", Description: "Trouble à l'ordre public"},
				{Name: "Environnement", Description: "Atteinte à l'environnement"},
				{Name: "Autre", Description: "Autre problème relevant de la gendarmerie"},
			},
		},
	}
}
