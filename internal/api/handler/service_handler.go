package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bolle-sn/citizen-relay/internal/core/ports"
)

// ServiceHandler exposes the municipal agency catalog.
type ServiceHandler struct {
	registry ports.RegistryService
	// allowInitialize gates the catalog seeding route; off in production.
	allowInitialize bool
}

func NewServiceHandler(registry ports.RegistryService, allowInitialize bool) *ServiceHandler {
	return &ServiceHandler{registry: registry, allowInitialize: allowInitialize}
}

type availabilityResponse struct {
	ServiceID   string `json:"service_id"`
	IsAvailable bool   `json:"is_available"`
}

type initializeResponse struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
}

// List returns every active agency.
//
// @Summary      List active services
// @Tags         services
// @Produce      json
// @Success      200  {array}  domain.Agency
// @Router       /services [get]
func (h *ServiceHandler) List(c echo.Context) error {
	agencies, err := h.registry.ListActive(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agencies)
}

// Get returns one agency by id.
//
// @Summary      Get a service
// @Tags         services
// @Produce      json
// @Param        id   path      string  true  "Service id"
// @Success      200  {object}  domain.Agency
// @Failure      404  {object}  errorResponse
// @Router       /services/{id} [get]
func (h *ServiceHandler) Get(c echo.Context) error {
	agency, err := h.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agency)
}

// Categories returns the report categories an agency accepts.
//
// @Summary      List a service's categories
// @Tags         services
// @Produce      json
// @Param        id   path      string  true  "Service id"
// @Success      200  {array}   domain.Category
// @Failure      404  {object}  errorResponse
// @Router       /services/{id}/categories [get]
func (h *ServiceHandler) Categories(c echo.Context) error {
	categories, err := h.registry.Categories(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

// Availability probes the agency backend and returns the observed state.
//
// @Summary      Check a service's availability
// @Tags         services
// @Produce      json
// @Param        id   path      string  true  "Service id"
// @Success      200  {object}  availabilityResponse
// @Failure      404  {object}  errorResponse
// @Router       /services/{id}/availability [get]
func (h *ServiceHandler) Availability(c echo.Context) error {
	available, err := h.registry.CheckAvailability(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, availabilityResponse{
		ServiceID:   c.Param("id"),
		IsAvailable: available,
	})
}

// Initialize seeds the default agency catalog. No-op when agencies already
// exist. Disabled in production.
//
// @Summary      Seed the service catalog
// @Tags         services
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  initializeResponse
// @Failure      403  {object}  errorResponse
// @Router       /services/initialize [post]
func (h *ServiceHandler) Initialize(c echo.Context) error {
	if !h.allowInitialize {
		return echo.NewHTTPError(http.StatusForbidden, "catalog initialization is disabled")
	}
	if _, _, err := ctxUser(c); err != nil {
		return err
	}

	inserted, err := h.registry.Seed(c.Request().Context())
	if err != nil {
		return err
	}

	msg := "Catalogue déjà initialisé"
	if inserted > 0 {
		msg = "Catalogue de services initialisé"
	}
	return c.JSON(http.StatusOK, initializeResponse{Message: msg, Inserted: inserted})
}
