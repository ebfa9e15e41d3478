package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bolle-sn/citizen-relay/internal/core/domain"
	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

// AlertHandler exposes the alert lifecycle: creation with media proofs,
// citizen reads, standalone uploads and the agency-facing webhooks.
type AlertHandler struct {
	alertService  ports.AlertService
	uploadService ports.UploadService
}

func NewAlertHandler(alertService ports.AlertService, uploadService ports.UploadService) *AlertHandler {
	return &AlertHandler{alertService: alertService, uploadService: uploadService}
}

// Create files a new alert. Accepts either a JSON body with pre-uploaded
// proofs, or a multipart form carrying the proof files directly.
//
// @Summary      Create an alert
// @Tags         alerts
// @Accept       json
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAlertRequest  true  "Alert details"
// @Success      201   {object}  alertResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /alerts [post]
func (h *AlertHandler) Create(c echo.Context) error {
	userID, role, err := ctxUser(c)
	if err != nil {
		return err
	}

	req, err := h.bindCreateRequest(c)
	if err != nil {
		return err
	}

	// Anonymous sessions have no citizen identity to attach; the alert is
	// forced anonymous regardless of what the client asked for.
	citizenID := userID
	if role == domain.RoleAnonymous {
		citizenID = ""
		req.IsAnonymous = true
	}

	alert, err := h.alertService.Create(c.Request().Context(), citizenID, ports.CreateAlertInput{
		ServiceID:   req.ServiceID,
		Category:    req.Category,
		Description: req.Description,
		Coordinates: req.Coordinates,
		Address:     req.Address,
		IsAnonymous: req.IsAnonymous,
		Proofs:      req.Proofs,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, alertResponse{Message: "Alerte créée avec succès", Alert: alert})
}

// bindCreateRequest extracts the create payload from either a JSON or a
// multipart body. Multipart proof files are processed into stored proofs.
func (h *AlertHandler) bindCreateRequest(c echo.Context) (*createAlertRequest, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		var req createAlertRequest
		if err := c.Bind(&req); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}
		if err := c.Validate(&req); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return &req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}

	req := &createAlertRequest{
		ServiceID:   c.FormValue("serviceId"),
		Category:    c.FormValue("category"),
		Description: c.FormValue("description"),
		Address:     c.FormValue("address"),
		IsAnonymous: parseBool(c.FormValue("isAnonymous")),
	}
	if req.ServiceID == "" {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "serviceid is required")
	}

	req.Coordinates, err = parseCoordinates(c.FormValue("coordinates"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "coordinates must be [longitude, latitude]")
	}

	files := form.File["proofs"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) > 0 {
		incoming, err := readIncomingFiles(files)
		if err != nil {
			return nil, err
		}
		proofs, err := h.uploadService.ProcessFiles(c.Request().Context(), incoming)
		if err != nil {
			return nil, err
		}
		req.Proofs = proofs
	}

	return req, nil
}

// ListMine returns the authenticated citizen's alerts, anonymous ones
// included.
//
// @Summary      List my alerts
// @Tags         alerts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  alertListResponse
// @Failure      401  {object}  errorResponse
// @Router       /alerts/me [get]
func (h *AlertHandler) ListMine(c echo.Context) error {
	userID, err := ctxCitizen(c)
	if err != nil {
		return err
	}

	alerts, err := h.alertService.ListByCitizen(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alertListResponse{Count: len(alerts), Alerts: alerts})
}

// Nearby returns non-anonymous alerts around a point.
//
// @Summary      List alerts near a point
// @Tags         alerts
// @Produce      json
// @Security     BearerAuth
// @Param        longitude  query     number  true   "Longitude"
// @Param        latitude   query     number  true   "Latitude"
// @Param        distance   query     int     false  "Max distance in meters (default 5000)"
// @Success      200  {object}  alertListResponse
// @Failure      400  {object}  errorResponse
// @Router       /alerts/nearby [get]
func (h *AlertHandler) Nearby(c echo.Context) error {
	if _, _, err := ctxUser(c); err != nil {
		return err
	}

	lng, errLng := strconv.ParseFloat(c.QueryParam("longitude"), 64)
	lat, errLat := strconv.ParseFloat(c.QueryParam("latitude"), 64)
	if errLng != nil || errLat != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "longitude and latitude are required")
	}

	distance := 0
	if raw := c.QueryParam("distance"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "distance must be a positive integer")
		}
		distance = d
	}

	alerts, err := h.alertService.Nearby(c.Request().Context(), []float64{lng, lat}, distance)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alertListResponse{Count: len(alerts), Alerts: alerts})
}

// Get returns one alert. Only the creator may read it.
//
// @Summary      Get an alert
// @Tags         alerts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Alert id"
// @Success      200  {object}  domain.Alert
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /alerts/{id} [get]
func (h *AlertHandler) Get(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	alert, err := h.alertService.GetByID(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alert)
}

// AddComment appends a citizen comment to an alert.
//
// @Summary      Comment on an alert
// @Tags         alerts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Alert id"
// @Param        body  body      addCommentRequest  true  "Comment"
// @Success      200   {object}  domain.Alert
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /alerts/{id}/comments [post]
func (h *AlertHandler) AddComment(c echo.Context) error {
	userID, _, err := ctxUser(c)
	if err != nil {
		return err
	}

	var req addCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	alert, err := h.alertService.AddComment(c.Request().Context(), c.Param("id"), userID, req.Text)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alert)
}

// UploadSingle stores one media file and returns the resulting proof.
//
// @Summary      Upload a proof file
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Media file"
// @Success      200   {object}  uploadResponse
// @Failure      400   {object}  errorResponse
// @Failure      413   {object}  errorResponse
// @Router       /alerts/upload [post]
func (h *AlertHandler) UploadSingle(c echo.Context) error {
	if _, _, err := ctxUser(c); err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
	}

	incoming, err := readIncomingFiles([]*multipart.FileHeader{fh})
	if err != nil {
		return err
	}

	proofs, err := h.uploadService.ProcessFiles(c.Request().Context(), incoming)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, uploadResponse{Message: "Fichier téléchargé avec succès", Proofs: proofs})
}

// UploadMultiple stores several media files in one request.
//
// @Summary      Upload multiple proof files
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        files  formData  file  true  "Media files"
// @Success      200    {object}  uploadResponse
// @Failure      400    {object}  errorResponse
// @Failure      413    {object}  errorResponse
// @Router       /alerts/uploads [post]
func (h *AlertHandler) UploadMultiple(c echo.Context) error {
	if _, _, err := ctxUser(c); err != nil {
		return err
	}

	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}
	files := form.File["files"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files uploaded")
	}

	incoming, err := readIncomingFiles(files)
	if err != nil {
		return err
	}

	proofs, err := h.uploadService.ProcessFiles(c.Request().Context(), incoming)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, uploadResponse{Message: "Fichiers téléchargés avec succès", Proofs: proofs})
}

// DeleteUpload removes a previously uploaded file, locally and remotely.
//
// @Summary      Delete an uploaded file
// @Tags         uploads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      deleteUploadRequest  true  "File reference"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Router       /alerts/upload [delete]
func (h *AlertHandler) DeleteUpload(c echo.Context) error {
	if _, _, err := ctxUser(c); err != nil {
		return err
	}

	var req deleteUploadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	proofType := domain.ProofType(req.Type)
	if proofType == "" {
		proofType = domain.ProofPhoto
	}
	err := h.uploadService.DeleteProof(c.Request().Context(), domain.Proof{
		Type:               proofType,
		URL:                req.FileURL,
		CloudinaryPublicID: req.PublicID,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: "Fichier supprimé avec succès"})
}

// WebhookStatus records a status transition reported by an agency.
// Authenticated by the ServiceKey middleware.
//
// @Summary      Agency status webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        body  body      statusWebhookRequest  true  "Status update"
// @Success      200   {object}  domain.Alert
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /alerts/webhook/status [post]
func (h *AlertHandler) WebhookStatus(c echo.Context) error {
	var req statusWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	alert, err := h.alertService.UpdateStatus(c.Request().Context(), ports.StatusUpdateInput{
		AlertID:   req.AlertID,
		Status:    domain.AlertStatus(req.Status),
		Comment:   req.Comment,
		UpdatedBy: req.UpdatedBy,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alert)
}

// WebhookComment appends an agency-authored comment to an alert.
// Authenticated by the ServiceKey middleware.
//
// @Summary      Agency comment webhook
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        body  body      commentWebhookRequest  true  "Comment"
// @Success      200   {object}  domain.Alert
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /alerts/webhook/comments [post]
func (h *AlertHandler) WebhookComment(c echo.Context) error {
	var req commentWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	alert, err := h.alertService.ReceiveExternalComment(c.Request().Context(), ports.ExternalCommentInput{
		AlertID:    req.AlertID,
		Text:       req.Text,
		Author:     req.AuthorName,
		AuthorType: req.AuthorType,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alert)
}

// HygieneAlerts returns every hygiene-category alert for the hygiene
// backend. Authenticated by the ServiceKey middleware.
//
// @Summary      List hygiene alerts
// @Tags         webhooks
// @Produce      json
// @Success      200  {object}  alertListResponse
// @Router       /external/alerts/hygiene [get]
func (h *AlertHandler) HygieneAlerts(c echo.Context) error {
	alerts, err := h.alertService.ListByCategory(c.Request().Context(), "hygiene")
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, alertListResponse{Count: len(alerts), Alerts: alerts})
}

// --- helpers ---

// parseCoordinates accepts either a JSON array ("[-17.45, 14.69]") or a
// comma-separated pair ("-17.45,14.69"), longitude first.
func parseCoordinates(raw string) ([]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, domain.ErrMissingCoordinates
	}

	if strings.HasPrefix(raw, "[") {
		var coords []float64
		if err := json.Unmarshal([]byte(raw), &coords); err != nil || len(coords) != 2 {
			return nil, domain.ErrMissingCoordinates
		}
		return coords, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, domain.ErrMissingCoordinates
	}
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLng != nil || errLat != nil {
		return nil, domain.ErrMissingCoordinates
	}
	return []float64{lng, lat}, nil
}

func parseBool(raw string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(raw))
	return b
}

// readIncomingFiles loads multipart files into memory. Sizes are bounded by
// the upload service's per-file cap, enforced again downstream.
func readIncomingFiles(headers []*multipart.FileHeader) ([]ports.IncomingFile, error) {
	incoming := make([]ports.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable file: "+fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable file: "+fh.Filename)
		}

		contentType := fh.Header.Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(data)
		}

		incoming = append(incoming, ports.IncomingFile{
			Name:        fh.Filename,
			ContentType: contentType,
			Size:        int64(len(data)),
			Data:        data,
		})
	}
	return incoming, nil
}
