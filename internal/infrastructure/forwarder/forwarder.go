// Package forwarder pushes alerts and comments to the municipal agency
// backends over HTTP.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
)

const (
	forwardTimeout = 10 * time.Second
	probeTimeout   = 5 * time.Second

	headerServiceKey = "X-Service-Key"
	headerImportKey  = "X-API-Key"
)

// HTTPForwarder implements ports.Forwarder against agency REST APIs.
type HTTPForwarder struct {
	client     *http.Client
	serviceKey string
	// importKey authenticates against the hygiene service's bulk import
	// endpoint, which uses a separate credential.
	importKey string
	log       zerolog.Logger
}

func NewHTTPForwarder(serviceKey, importKey string, log zerolog.Logger) *HTTPForwarder {
	return &HTTPForwarder{
		client:     &http.Client{Timeout: forwardTimeout},
		serviceKey: serviceKey,
		importKey:  importKey,
		log:        log,
	}
}

// alertPayload is the wire shape agencies accept. AlertID is doubled into
// "_id" because the hygiene import endpoint expects the raw document id.
type alertPayload struct {
	AlertID     string                      `json:"alertId"`
	MongoID     string                      `json:"_id"`
	Title       string                      `json:"title"`
	Category    string                      `json:"category,omitempty"`
	Description string                      `json:"description,omitempty"`
	Location    domain.Location             `json:"location"`
	Proofs      []domain.Proof              `json:"proofs"`
	IsAnonymous bool                        `json:"isAnonymous"`
	CitizenID   string                      `json:"citizenId,omitempty"`
	Status      domain.AlertStatus          `json:"status"`
	Priority    string                      `json:"priority"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

type forwardResponse struct {
	ServiceReferenceID string `json:"serviceReferenceId"`
}

// ForwardAlert posts the alert to the agency's /alerts endpoint and, for the
// hygiene service, additionally to its /import/alert endpoint. The import
// call is best effort and never fails the forwarding.
func (f *HTTPForwarder) ForwardAlert(ctx context.Context, agency *domain.Agency, alert *domain.Alert) (string, error) {
	title := agency.Name
	if title == "" {
		title = "Alerte"
	}
	payload := alertPayload{
		AlertID:     alert.ID,
		MongoID:     alert.ID,
		Title:       title,
		Category:    alert.Category,
		Description: alert.Description,
		Location:    alert.Location,
		Proofs:      alert.Proofs,
		IsAnonymous: alert.IsAnonymous,
		CitizenID:   alert.CitizenID,
		Status:      alert.Status,
		Priority:    "medium",
		CreatedAt:   alert.CreatedAt,
		UpdatedAt:   time.Now().UTC(),
	}

	body, status, err := f.post(ctx, agency.APIURL+"/alerts", headerServiceKey, f.serviceKey, payload)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("agency %s returned status %d", agency.Endpoint, status)
	}

	if agency.IsHygiene() {
		if _, importStatus, importErr := f.post(ctx, agency.APIURL+"/import/alert", headerImportKey, f.importKey, payload); importErr != nil {
			f.log.Error().Err(importErr).Str("alert_id", alert.ID).Msg("hygiene import forwarding failed")
		} else if importStatus < 200 || importStatus >= 300 {
			f.log.Error().Int("status", importStatus).Str("alert_id", alert.ID).Msg("hygiene import endpoint rejected alert")
		}
	}

	var resp forwardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// Some agencies answer with plain acknowledgements.
		return "", nil
	}
	return resp.ServiceReferenceID, nil
}

// ForwardComment relays a citizen comment to the agency. The alert is
// addressed by the agency's own reference id when one was assigned.
func (f *HTTPForwarder) ForwardComment(ctx context.Context, agency *domain.Agency, alert *domain.Alert, comment domain.Comment) error {
	ref := alert.ServiceReferenceID
	if ref == "" {
		ref = alert.ID
	}

	payload := map[string]string{
		"text":       comment.Text,
		"authorType": "citizen",
		"citizenId":  comment.AuthorID,
	}

	_, status, err := f.post(ctx, fmt.Sprintf("%s/alerts/%s/comments", agency.APIURL, ref), headerServiceKey, f.serviceKey, payload)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("agency %s returned status %d", agency.Endpoint, status)
	}
	return nil
}

// ProbeHealth reports whether the agency's /health endpoint answers 200.
func (f *HTTPForwarder) ProbeHealth(ctx context.Context, agency *domain.Agency) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, agency.APIURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debug().Err(err).Str("service", agency.Endpoint).Msg("health probe failed")
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

func (f *HTTPForwarder) post(ctx context.Context, url, keyHeader, key string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(keyHeader, key)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, resp.StatusCode, err
	}
	return buf.Bytes(), resp.StatusCode, nil
}
