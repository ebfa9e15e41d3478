package handler

import "github.com/bolle-sn/citizen-relay/internal/core/domain"

// --- Alert requests ---

// createAlertRequest is the JSON form of the create payload. Multipart
// submissions carry the same fields as form values plus the proof files.
type createAlertRequest struct {
	ServiceID   string         `json:"serviceId"   form:"serviceId"   validate:"required"`
	Category    string         `json:"category"    form:"category"`
	Description string         `json:"description" form:"description"`
	Coordinates []float64      `json:"coordinates" validate:"required,len=2"`
	Address     string         `json:"address"     form:"address"`
	IsAnonymous bool           `json:"isAnonymous" form:"isAnonymous"`
	Proofs      []domain.Proof `json:"proofs"`
}

type addCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

type statusWebhookRequest struct {
	AlertID   string `json:"alertId"   validate:"required"`
	Status    string `json:"status"    validate:"required"`
	Comment   string `json:"comment"`
	UpdatedBy string `json:"updatedBy"`
}

type commentWebhookRequest struct {
	AlertID    string `json:"alertId" validate:"required"`
	Text       string `json:"text"    validate:"required"`
	AuthorType string `json:"authorType"`
	AuthorName string `json:"authorName"`
}

type deleteUploadRequest struct {
	FileURL  string `json:"fileUrl" validate:"required"`
	PublicID string `json:"publicId"`
	Type     string `json:"type"`
}

// --- Alert responses ---

type alertResponse struct {
	Message string        `json:"message,omitempty"`
	Alert   *domain.Alert `json:"alert"`
}

type alertListResponse struct {
	Count  int             `json:"count"`
	Alerts []*domain.Alert `json:"alerts"`
}

type uploadResponse struct {
	Message string         `json:"message"`
	Proofs  []domain.Proof `json:"proofs"`
}
