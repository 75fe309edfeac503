package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"news-sentiment-api/internal/api/service"
)

// HealthHandler handles liveness and welcome routes.
type HealthHandler struct {
	newsService service.NewsService
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(newsService service.NewsService) *HealthHandler {
	return &HealthHandler{newsService: newsService}
}

// RegisterRoutes registers the health routes on the Echo instance.
func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
}

// Root godoc
// @Summary Welcome message
// @Tags health
// @Produce  json
// @Success 200 {object} map[string]string
// @Router / [get]
func (h *HealthHandler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Welcome to News Sentiment API"})
}

// Health godoc
// @Summary Health check
// @Description Report cache size and store reachability
// @Tags health
// @Produce  json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, h.newsService.Health(c.Request().Context()))
}
