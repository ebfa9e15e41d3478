package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

type stubAlertRepo struct {
	alerts map[string]*domain.Alert
	nextID int
}

func newStubAlertRepo() *stubAlertRepo {
	return &stubAlertRepo{alerts: make(map[string]*domain.Alert)}
}

func cloneAlert(a *domain.Alert) *domain.Alert {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Proofs = append([]domain.Proof(nil), a.Proofs...)
	clone.StatusHistory = append([]domain.StatusHistoryEntry(nil), a.StatusHistory...)
	clone.Comments = append([]domain.Comment(nil), a.Comments...)
	return &clone
}

func (r *stubAlertRepo) Insert(_ context.Context, alert *domain.Alert) (*domain.Alert, error) {
	r.nextID++
	copy := cloneAlert(alert)
	copy.ID = fmt.Sprintf("alert-%d", r.nextID)
	r.alerts[copy.ID] = cloneAlert(copy)
	return cloneAlert(copy), nil
}

func (r *stubAlertRepo) FindByID(_ context.Context, id string) (*domain.Alert, error) {
	if a, ok := r.alerts[id]; ok {
		return cloneAlert(a), nil
	}
	return nil, domain.ErrAlertNotFound
}

func (r *stubAlertRepo) FindByCitizen(_ context.Context, citizenID string) ([]*domain.Alert, error) {
	var out []*domain.Alert
	for _, a := range r.alerts {
		if a.CitizenID == citizenID || a.CreatedBy == citizenID {
			out = append(out, cloneAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *stubAlertRepo) FindByCategory(_ context.Context, category string) ([]*domain.Alert, error) {
	var out []*domain.Alert
	for _, a := range r.alerts {
		if a.Category == category {
			out = append(out, cloneAlert(a))
		}
	}
	return out, nil
}

func (r *stubAlertRepo) FindNearby(_ context.Context, _ []float64, _ int, limit int) ([]*domain.Alert, error) {
	var out []*domain.Alert
	for _, a := range r.alerts {
		if a.IsAnonymous {
			continue
		}
		out = append(out, cloneAlert(a))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *stubAlertRepo) AppendComment(_ context.Context, alertID string, comment domain.Comment) error {
	a, ok := r.alerts[alertID]
	if !ok {
		return domain.ErrAlertNotFound
	}
	a.Comments = append(a.Comments, comment)
	return nil
}

func (r *stubAlertRepo) AppendStatus(_ context.Context, alertID string, entry domain.StatusHistoryEntry) error {
	a, ok := r.alerts[alertID]
	if !ok {
		return domain.ErrAlertNotFound
	}
	a.Status = entry.Status
	a.StatusHistory = append(a.StatusHistory, entry)
	a.UpdatedAt = entry.UpdatedAt
	return nil
}

func (r *stubAlertRepo) SetServiceReference(_ context.Context, alertID, referenceID string) error {
	a, ok := r.alerts[alertID]
	if !ok {
		return domain.ErrAlertNotFound
	}
	a.ServiceReferenceID = referenceID
	return nil
}

type stubAgencyRepo struct {
	agencies map[string]*domain.Agency
}

func newStubAgencyRepo(agencies ...*domain.Agency) *stubAgencyRepo {
	r := &stubAgencyRepo{agencies: make(map[string]*domain.Agency)}
	for _, a := range agencies {
		r.agencies[a.ID] = a
	}
	return r
}

func (r *stubAgencyRepo) FindActive(_ context.Context) ([]*domain.Agency, error) {
	var out []*domain.Agency
	for _, a := range r.agencies {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubAgencyRepo) FindByID(_ context.Context, id string) (*domain.Agency, error) {
	if a, ok := r.agencies[id]; ok {
		return a, nil
	}
	return nil, domain.ErrServiceNotFound
}

func (r *stubAgencyRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.agencies)), nil
}

func (r *stubAgencyRepo) InsertMany(_ context.Context, agencies []*domain.Agency) ([]*domain.Agency, error) {
	for i, a := range agencies {
		if a.ID == "" {
			a.ID = fmt.Sprintf("agency-%d", i+1)
		}
		r.agencies[a.ID] = a
	}
	return agencies, nil
}

func (r *stubAgencyRepo) SetAvailability(_ context.Context, id string, available bool) error {
	a, ok := r.agencies[id]
	if !ok {
		return domain.ErrServiceNotFound
	}
	a.IsAvailable = available
	return nil
}

type stubForwarder struct {
	refID       string
	forwardErr  error
	commentErr  error
	healthy     bool
	forwarded   []*domain.Alert
	comments    []domain.Comment
	lastAgency  *domain.Agency
	probedCount int
}

func (f *stubForwarder) ForwardAlert(_ context.Context, agency *domain.Agency, alert *domain.Alert) (string, error) {
	f.lastAgency = agency
	if f.forwardErr != nil {
		return "", f.forwardErr
	}
	f.forwarded = append(f.forwarded, alert)
	return f.refID, nil
}

func (f *stubForwarder) ForwardComment(_ context.Context, agency *domain.Agency, _ *domain.Alert, comment domain.Comment) error {
	f.lastAgency = agency
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, comment)
	return nil
}

func (f *stubForwarder) ProbeHealth(_ context.Context, _ *domain.Agency) bool {
	f.probedCount++
	return f.healthy
}

func hygieneAgency() *domain.Agency {
	return &domain.Agency{
		ID:       "agency-hygiene",
		Name:     "hygiene",
		Endpoint: "hygiene",
		APIURL:   "http://localhost:3008/api",
		IsActive: true,
	}
}

func newTestAlertService(repo *stubAlertRepo, agencies *stubAgencyRepo, fwd *stubForwarder) *AlertService {
	svc := NewAlertService(repo, agencies, fwd, zerolog.Nop())
	// Run forwarding inline so assertions see its effects.
	svc.background = func(fn func()) { fn() }
	return svc
}

func photoProof() domain.Proof {
	return domain.Proof{Type: domain.ProofPhoto, URL: "/uploads/p.jpg", CreatedAt: time.Now()}
}

func validCreateInput() ports.CreateAlertInput {
	return ports.CreateAlertInput{
		ServiceID:   "agency-hygiene",
		Category:    "dépôt sauvage",
		Description: "Tas d'ordures au coin de la rue",
		Coordinates: []float64{-17.45, 14.71},
		Address:     "Médina, Dakar",
		Proofs:      []domain.Proof{photoProof()},
	}
}

func TestAlertService_Create_Success(t *testing.T) {
	repo := newStubAlertRepo()
	fwd := &stubForwarder{refID: "SRV-42"}
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), fwd)

	alert, err := svc.Create(context.Background(), "citizen-1", validCreateInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if alert.Status != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", alert.Status)
	}
	if len(alert.StatusHistory) != 1 || alert.StatusHistory[0].Comment != "Alerte créée" {
		t.Fatalf("expected creation history entry, got %+v", alert.StatusHistory)
	}
	if alert.CitizenID != "citizen-1" || alert.CreatedBy != "citizen-1" {
		t.Fatalf("expected both owner fields set, got citizenId=%q createdBy=%q", alert.CitizenID, alert.CreatedBy)
	}
	if alert.Location.Type != "Point" {
		t.Fatalf("expected GeoJSON point, got %+v", alert.Location)
	}
	if len(fwd.forwarded) != 1 {
		t.Fatalf("expected alert to be forwarded")
	}
	if repo.alerts[alert.ID].ServiceReferenceID != "SRV-42" {
		t.Fatalf("expected service reference to be stored, got %q", repo.alerts[alert.ID].ServiceReferenceID)
	}
}

func TestAlertService_Create_Anonymous(t *testing.T) {
	repo := newStubAlertRepo()
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	input := validCreateInput()
	input.IsAnonymous = true
	alert, err := svc.Create(context.Background(), "citizen-1", input)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if alert.CitizenID != "" {
		t.Fatalf("anonymous alert must not expose citizenId, got %q", alert.CitizenID)
	}
	if alert.CreatedBy != "citizen-1" {
		t.Fatalf("creator must still be traced, got %q", alert.CreatedBy)
	}
}

func TestAlertService_Create_InactiveService(t *testing.T) {
	agency := hygieneAgency()
	agency.IsActive = false
	svc := newTestAlertService(newStubAlertRepo(), newStubAgencyRepo(agency), &stubForwarder{})

	if _, err := svc.Create(context.Background(), "citizen-1", validCreateInput()); err != domain.ErrServiceInactive {
		t.Fatalf("expected ErrServiceInactive, got %v", err)
	}
}

func TestAlertService_Create_UnknownService(t *testing.T) {
	svc := newTestAlertService(newStubAlertRepo(), newStubAgencyRepo(), &stubForwarder{})

	if _, err := svc.Create(context.Background(), "citizen-1", validCreateInput()); err != domain.ErrServiceInactive {
		t.Fatalf("expected ErrServiceInactive, got %v", err)
	}
}

func TestAlertService_Create_Validation(t *testing.T) {
	svc := newTestAlertService(newStubAlertRepo(), newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	input := validCreateInput()
	input.Coordinates = nil
	if _, err := svc.Create(context.Background(), "c", input); err != domain.ErrMissingCoordinates {
		t.Fatalf("expected ErrMissingCoordinates, got %v", err)
	}

	input = validCreateInput()
	input.Proofs = nil
	if _, err := svc.Create(context.Background(), "c", input); err != domain.ErrMissingProofs {
		t.Fatalf("expected ErrMissingProofs, got %v", err)
	}
}

func TestAlertService_Create_ForwardFailureDoesNotFailCreate(t *testing.T) {
	repo := newStubAlertRepo()
	fwd := &stubForwarder{forwardErr: errors.New("connection refused")}
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), fwd)

	alert, err := svc.Create(context.Background(), "citizen-1", validCreateInput())
	if err != nil {
		t.Fatalf("create must succeed despite forwarding failure, got %v", err)
	}

	stored := repo.alerts[alert.ID]
	if len(stored.Comments) != 1 {
		t.Fatalf("expected a system comment about the failure, got %+v", stored.Comments)
	}
	c := stored.Comments[0]
	if c.Author != domain.CommentAuthorSystem {
		t.Fatalf("expected system author, got %q", c.Author)
	}
	if !strings.Contains(c.Text, "connection refused") {
		t.Fatalf("expected failure reason in comment, got %q", c.Text)
	}
}

func TestAlertService_GetByID_Ownership(t *testing.T) {
	repo := newStubAlertRepo()
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	alert, err := svc.Create(context.Background(), "citizen-1", validCreateInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.GetByID(context.Background(), alert.ID, "citizen-1"); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), alert.ID, "citizen-2"); err != domain.ErrAccessDenied {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), "missing", "citizen-1"); err != domain.ErrAlertNotFound {
		t.Fatalf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestAlertService_GetByID_AnonymousCreatorKeepsAccess(t *testing.T) {
	repo := newStubAlertRepo()
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	input := validCreateInput()
	input.IsAnonymous = true
	alert, err := svc.Create(context.Background(), "citizen-1", input)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.GetByID(context.Background(), alert.ID, "citizen-1"); err != nil {
		t.Fatalf("creator must keep access to an anonymous alert: %v", err)
	}
}

func TestAlertService_ListByCitizen_IncludesAnonymous(t *testing.T) {
	repo := newStubAlertRepo()
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	if _, err := svc.Create(context.Background(), "citizen-1", validCreateInput()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	anon := validCreateInput()
	anon.IsAnonymous = true
	if _, err := svc.Create(context.Background(), "citizen-1", anon); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), "citizen-2", validCreateInput()); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	alerts, err := svc.ListByCitizen(context.Background(), "citizen-1")
	if err != nil {
		t.Fatalf("ListByCitizen failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts (one anonymous), got %d", len(alerts))
	}
}

func TestAlertService_ListByCitizen_EmptyID(t *testing.T) {
	svc := newTestAlertService(newStubAlertRepo(), newStubAgencyRepo(), &stubForwarder{})

	alerts, err := svc.ListByCitizen(context.Background(), "")
	if err != nil {
		t.Fatalf("ListByCitizen failed: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts for empty id, got %d", len(alerts))
	}
}

func TestAlertService_AddComment(t *testing.T) {
	repo := newStubAlertRepo()
	fwd := &stubForwarder{}
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), fwd)

	alert, err := svc.Create(context.Background(), "citizen-1", validCreateInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.AddComment(context.Background(), alert.ID, "citizen-1", "Toujours pas ramassé")
	if err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	if len(updated.Comments) != 1 || updated.Comments[0].Author != domain.CommentAuthorCitizen {
		t.Fatalf("unexpected comments: %+v", updated.Comments)
	}
	if len(fwd.comments) != 1 {
		t.Fatalf("expected comment to be relayed to the agency")
	}

	// Non-owner may not comment.
	if _, err := svc.AddComment(context.Background(), alert.ID, "citizen-2", "hi"); err != domain.ErrAccessDenied {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestAlertService_AddComment_RelayFailureIsIgnored(t *testing.T) {
	repo := newStubAlertRepo()
	fwd := &stubForwarder{commentErr: errors.New("agency down")}
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), fwd)

	alert, err := svc.Create(context.Background(), "citizen-1", validCreateInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.AddComment(context.Background(), alert.ID, "citizen-1", "text")
	if err != nil {
		t.Fatalf("comment must be stored despite relay failure, got %v", err)
	}
	if len(updated.Comments) != 1 {
		t.Fatalf("expected comment stored, got %+v", updated.Comments)
	}
}

func TestAlertService_Nearby_ExcludesAnonymous(t *testing.T) {
	repo := newStubAlertRepo()
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	if _, err := svc.Create(context.Background(), "citizen-1", validCreateInput()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	anon := validCreateInput()
	anon.IsAnonymous = true
	if _, err := svc.Create(context.Background(), "citizen-1", anon); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	alerts, err := svc.Nearby(context.Background(), []float64{-17.45, 14.71}, 0)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected only the public alert, got %d", len(alerts))
	}
	if alerts[0].IsAnonymous {
		t.Fatalf("anonymous alert leaked into nearby results")
	}
}

func TestAlertService_Nearby_RequiresCoordinates(t *testing.T) {
	svc := newTestAlertService(newStubAlertRepo(), newStubAgencyRepo(), &stubForwarder{})

	if _, err := svc.Nearby(context.Background(), []float64{-17.45}, 1000); err != domain.ErrMissingCoordinates {
		t.Fatalf("expected ErrMissingCoordinates, got %v", err)
	}
}

func TestAlertService_UpdateStatus(t *testing.T) {
	repo := newStubAlertRepo()
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	alert, err := svc.Create(context.Background(), "citizen-1", validCreateInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), ports.StatusUpdateInput{
		AlertID:   alert.ID,
		Status:    domain.StatusInProgress,
		Comment:   "Équipe en route",
		UpdatedBy: "hygiene",
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != domain.StatusInProgress {
		t.Fatalf("status not applied: %s", updated.Status)
	}
	if len(updated.StatusHistory) != 2 {
		t.Fatalf("history must be append-only, got %d entries", len(updated.StatusHistory))
	}

	if _, err := svc.UpdateStatus(context.Background(), ports.StatusUpdateInput{
		AlertID: alert.ID,
		Status:  "bogus",
	}); err == nil {
		t.Fatalf("expected error for invalid status")
	}
}

func TestAlertService_ReceiveExternalComment(t *testing.T) {
	repo := newStubAlertRepo()
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	alert, err := svc.Create(context.Background(), "citizen-1", validCreateInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := svc.ReceiveExternalComment(context.Background(), ports.ExternalCommentInput{
		AlertID: alert.ID,
		Text:    "Intervention planifiée demain",
		Author:  "Service Hygiène",
	})
	if err != nil {
		t.Fatalf("ReceiveExternalComment failed: %v", err)
	}
	if len(updated.Comments) != 1 || updated.Comments[0].Author != "Service Hygiène" {
		t.Fatalf("unexpected comments: %+v", updated.Comments)
	}

	if _, err := svc.ReceiveExternalComment(context.Background(), ports.ExternalCommentInput{
		AlertID: "missing", Text: "x",
	}); err != domain.ErrAlertNotFound {
		t.Fatalf("expected ErrAlertNotFound, got %v", err)
	}
}

func TestAlertService_ReceiveExternalComment_AuthorFallback(t *testing.T) {
	repo := newStubAlertRepo()
	svc := newTestAlertService(repo, newStubAgencyRepo(hygieneAgency()), &stubForwarder{})

	alert, err := svc.Create(context.Background(), "citizen-1", validCreateInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Anonymous agency comments carry the service byline; agents get
	// their own.
	cases := []struct {
		authorType string
		want       string
	}{
		{authorType: "agent", want: "Agent service hygiène"},
		{authorType: "", want: "Service hygiène"},
		{authorType: "service", want: "Service hygiène"},
	}
	for i, tc := range cases {
		updated, err := svc.ReceiveExternalComment(context.Background(), ports.ExternalCommentInput{
			AlertID:    alert.ID,
			Text:       "Suivi en cours",
			AuthorType: tc.authorType,
		})
		if err != nil {
			t.Fatalf("ReceiveExternalComment failed: %v", err)
		}
		if got := updated.Comments[i].Author; got != tc.want {
			t.Fatalf("authorType %q: expected author %q, got %q", tc.authorType, tc.want, got)
		}
	}
}
