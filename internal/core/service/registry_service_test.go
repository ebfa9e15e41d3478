package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

func newTestRegistryService(repo *stubAgencyRepo, fwd *stubForwarder) *RegistryService {
	seed := DefaultAgencies("http://localhost:3008", "http://localhost:3010", "http://localhost:3011", "http://localhost:3012")
	return NewRegistryService(repo, fwd, seed, zerolog.Nop())
}

func TestRegistryService_Seed(t *testing.T) {
	repo := newStubAgencyRepo()
	svc := newTestRegistryService(repo, &stubForwarder{})

	n, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 agencies seeded, got %d", n)
	}

	active, err := svc.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(active) != 4 {
		t.Fatalf("expected 4 active agencies, got %d", len(active))
	}

	endpoints := map[string]bool{}
	for _, a := range active {
		endpoints[a.Endpoint] = true
		if len(a.Categories) == 0 {
			t.Fatalf("agency %s has no categories", a.Endpoint)
		}
	}
	for _, want := range []string{"hygiene", "police", "douane", "gendarmerie"} {
		if !endpoints[want] {
			t.Fatalf("missing agency %q in seed", want)
		}
	}
}

func TestRegistryService_Seed_Idempotent(t *testing.T) {
	repo := newStubAgencyRepo()
	svc := newTestRegistryService(repo, &stubForwarder{})

	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("first seed failed: %v", err)
	}
	n, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected second seed to be a no-op, inserted %d", n)
	}
}

func TestRegistryService_Categories(t *testing.T) {
	agency := hygieneAgency()
	agency.Categories = []domain.Category{{Name: "Déchets"}}
	svc := newTestRegistryService(newStubAgencyRepo(agency), &stubForwarder{})

	cats, err := svc.Categories(context.Background(), agency.ID)
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Déchets" {
		t.Fatalf("unexpected categories: %+v", cats)
	}

	if _, err := svc.Categories(context.Background(), "missing"); err != domain.ErrServiceNotFound {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestRegistryService_CheckAvailability(t *testing.T) {
	agency := hygieneAgency()
	repo := newStubAgencyRepo(agency)

	svc := newTestRegistryService(repo, &stubForwarder{healthy: true})
	available, err := svc.CheckAvailability(context.Background(), agency.ID)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if !available || !repo.agencies[agency.ID].IsAvailable {
		t.Fatalf("expected agency marked available")
	}

	svc = newTestRegistryService(repo, &stubForwarder{healthy: false})
	available, err = svc.CheckAvailability(context.Background(), agency.ID)
	if err != nil {
		t.Fatalf("CheckAvailability failed: %v", err)
	}
	if available || repo.agencies[agency.ID].IsAvailable {
		t.Fatalf("expected agency marked unavailable after failed probe")
	}
}
