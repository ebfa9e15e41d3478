package forwarder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

func testAlert() *domain.Alert {
	return &domain.Alert{
		ID:          "64a000000000000000000001",
		CitizenID:   "64a000000000000000000002",
		Category:    "Déchets",
		Description: "Dépôt sauvage",
		Location: domain.Location{
			GeoPoint: domain.NewGeoPoint([]float64{-17.45, 14.71}),
			Address:  "Médina, Dakar",
		},
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

func TestHTTPForwarder_ForwardAlert(t *testing.T) {
	var gotKey string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/alerts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("X-Service-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"serviceReferenceId": "SRV-7"})
	}))
	defer srv.Close()

	agency := &domain.Agency{Name: "Police Nationale", Endpoint: "police", APIURL: srv.URL}
	f := NewHTTPForwarder("secret-key", "", zerolog.Nop())

	ref, err := f.ForwardAlert(context.Background(), agency, testAlert())
	if err != nil {
		t.Fatalf("ForwardAlert failed: %v", err)
	}
	if ref != "SRV-7" {
		t.Fatalf("expected reference id SRV-7, got %q", ref)
	}
	if gotKey != "secret-key" {
		t.Fatalf("expected service key header, got %q", gotKey)
	}
	if gotBody["alertId"] != "64a000000000000000000001" || gotBody["_id"] != "64a000000000000000000001" {
		t.Fatalf("expected alert id in both fields, got %v", gotBody)
	}
	if gotBody["priority"] != "medium" {
		t.Fatalf("expected default medium priority, got %v", gotBody["priority"])
	}
}

func TestHTTPForwarder_ForwardAlert_HygieneDoublePost(t *testing.T) {
	paths := map[string]string{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/alerts":
			paths[r.URL.Path] = r.Header.Get("X-Service-Key")
		case "/import/alert":
			paths[r.URL.Path] = r.Header.Get("X-API-Key")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	agency := &domain.Agency{Name: "hygiene", Endpoint: "hygiene", APIURL: srv.URL}
	f := NewHTTPForwarder("svc-key", "import-key", zerolog.Nop())

	if _, err := f.ForwardAlert(context.Background(), agency, testAlert()); err != nil {
		t.Fatalf("ForwardAlert failed: %v", err)
	}
	if paths["/alerts"] != "svc-key" {
		t.Fatalf("standard endpoint not hit with service key: %v", paths)
	}
	if paths["/import/alert"] != "import-key" {
		t.Fatalf("import endpoint not hit with import key: %v", paths)
	}
}

func TestHTTPForwarder_ForwardAlert_HygieneImportFailureSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/import/alert" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	agency := &domain.Agency{Name: "hygiene", Endpoint: "hygiene", APIURL: srv.URL}
	f := NewHTTPForwarder("k", "k2", zerolog.Nop())

	if _, err := f.ForwardAlert(context.Background(), agency, testAlert()); err != nil {
		t.Fatalf("import endpoint failure must not fail forwarding: %v", err)
	}
}

func TestHTTPForwarder_ForwardAlert_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	agency := &domain.Agency{Name: "police", Endpoint: "police", APIURL: srv.URL}
	f := NewHTTPForwarder("k", "", zerolog.Nop())

	if _, err := f.ForwardAlert(context.Background(), agency, testAlert()); err == nil {
		t.Fatalf("expected error on 502 response")
	}
}

func TestHTTPForwarder_ForwardComment_UsesServiceReference(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	agency := &domain.Agency{Name: "police", Endpoint: "police", APIURL: srv.URL}
	f := NewHTTPForwarder("k", "", zerolog.Nop())

	alert := testAlert()
	alert.ServiceReferenceID = "SRV-9"
	comment := domain.Comment{Text: "toujours rien", Author: domain.CommentAuthorCitizen, AuthorID: alert.CitizenID}

	if err := f.ForwardComment(context.Background(), agency, alert, comment); err != nil {
		t.Fatalf("ForwardComment failed: %v", err)
	}
	if gotPath != "/alerts/SRV-9/comments" {
		t.Fatalf("expected service reference in path, got %s", gotPath)
	}
}

func TestHTTPForwarder_ProbeHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewHTTPForwarder("k", "", zerolog.Nop())
	agency := &domain.Agency{Endpoint: "police", APIURL: srv.URL}

	if !f.ProbeHealth(context.Background(), agency) {
		t.Fatalf("expected healthy probe")
	}

	srv.Close()
	if f.ProbeHealth(context.Background(), agency) {
		t.Fatalf("expected probe failure after server shutdown")
	}
}
