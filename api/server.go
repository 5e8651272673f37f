package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"place-discovery/models"
	"place-discovery/services"
	"place-discovery/storage"
	"place-discovery/utils"
)

// Handler exposes the engine over HTTP.
type Handler struct {
	engine *services.Engine
	logger *utils.Logger
}

// NewServer builds the echo instance with every route registered.
func NewServer(engine *services.Engine, logger *utils.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("[api] %s %s -> %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))

	RegisterRoutes(e, &Handler{engine: engine, logger: logger})
	return e
}

// RegisterRoutes wires the handler onto e.
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", HealthCheck)
	e.GET("/runs/*", h.ArchivedRun)

	g := e.Group("/properties/:id")
	g.POST("/discover", h.Discover)
	g.POST("/transit", h.Transit)
	g.POST("/routes", h.Routes)
}

func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type discoverBody struct {
	CategoryType string                   `json:"categoryType"`
	Override     *models.LocationOverride `json:"override"`
}

type routesBody struct {
	City string `json:"city"`
}

// Discover runs suggestion discovery, or transit matching for the transit
// category.
func (h *Handler) Discover(c echo.Context) error {
	id, err := propertyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Failure(err))
	}
	var body discoverBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	res, err := h.engine.Discover(c.Request().Context(), services.DiscoverRequest{
		PropertyID:   id,
		CategoryType: body.CategoryType,
		Override:     body.Override,
	})
	return c.JSON(statusFor(err), res)
}

// Transit records the nearest registered stops.
func (h *Handler) Transit(c echo.Context) error {
	id, err := propertyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Failure(err))
	}
	res, err := h.engine.PopulateTransit(c.Request().Context(), id)
	return c.JSON(statusFor(err), res)
}

// Routes discovers transit lines towards the landmark list.
func (h *Handler) Routes(c echo.Context) error {
	id, err := propertyID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Failure(err))
	}
	var body routesBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	res, err := h.engine.DiscoverRoutes(c.Request().Context(), id, body.City)
	return c.JSON(statusFor(err), res)
}

// ArchivedRun returns a report stored in the run archive. The request path is
// the report's archiveKey.
func (h *Handler) ArchivedRun(c echo.Context) error {
	res, err := h.engine.ArchivedRun(c.Request().Context(), "runs/"+c.Param("*"))
	return c.JSON(statusFor(err), res)
}

func propertyID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid property id")
	}
	return id, nil
}

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	var rle *services.RateLimitError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &rle):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrPropertyNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	case services.IsValidation(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
