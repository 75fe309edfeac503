package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"news-sentiment-api/internal/api/dto"
	"news-sentiment-api/internal/api/service"
	"news-sentiment-api/pkg/logger"
	"news-sentiment-api/pkg/ratelimit"
)

// NewsHandler handles HTTP requests for enriched news.
type NewsHandler struct {
	newsService service.NewsService
	limiter     *ratelimit.KeyedLimiter
	logger      *logger.Logger
}

// NewNewsHandler creates a new NewsHandler. The limiter is the one the
// service admits through, so the retry hint always matches its window.
func NewNewsHandler(newsService service.NewsService, limiter *ratelimit.KeyedLimiter, logger *logger.Logger) *NewsHandler {
	return &NewsHandler{newsService: newsService, limiter: limiter, logger: logger}
}

// RegisterRoutes registers the news routes to the Echo group.
func (h *NewsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetNews)
	g.GET("/refresh", h.RefreshNews)
	g.GET("/stats", h.GetStats)
}

// GetNews godoc
// @Summary Get enriched news
// @Description Get recent news articles with sentiment for an optional symbol filter
// @Tags news
// @Produce  json
// @Param   symbols  query   string  false   "Comma-separated symbol filter"
// @Param   page     query   int     false   "Provider page"
// @Param   limit    query   int     false   "Maximum articles to return"
// @Success 200 {array} dto.NewsArticleResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /news [get]
func (h *NewsHandler) GetNews(c echo.Context) error {
	symbols := splitSymbols(c.QueryParam("symbols"))
	page := intQueryParam(c, "page", 1)
	limit := intQueryParam(c, "limit", 0)

	articles, err := h.newsService.GetNews(c.Request().Context(), symbols, page, limit)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewsArticlesFromEntities(articles))
}

// RefreshNews godoc
// @Summary Force refresh news
// @Description Bypass cache and store and fetch live news for an optional symbol filter
// @Tags news
// @Produce  json
// @Param   symbols  query   string  false   "Comma-separated symbol filter"
// @Success 200 {array} dto.NewsArticleResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /news/refresh [get]
func (h *NewsHandler) RefreshNews(c echo.Context) error {
	symbols := splitSymbols(c.QueryParam("symbols"))

	articles, err := h.newsService.RefreshNews(c.Request().Context(), symbols)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, dto.NewsArticlesFromEntities(articles))
}

// GetStats godoc
// @Summary Get sentiment statistics
// @Description Get the cached per-label sentiment statistics for an optional symbol filter
// @Tags news
// @Produce  json
// @Param   symbols  query   string  false   "Comma-separated symbol filter"
// @Success 200 {object} dto.SentimentStats
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /news/stats [get]
func (h *NewsHandler) GetStats(c echo.Context) error {
	symbols := splitSymbols(c.QueryParam("symbols"))

	stats, err := h.newsService.GetStats(c.Request().Context(), symbols)
	if err != nil {
		return h.mapError(c, err)
	}

	return c.JSON(http.StatusOK, stats)
}

func (h *NewsHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
			Error:             "too many requests, retry after the cool-down window",
			RetryAfterSeconds: int(h.limiter.Window().Seconds()),
		})
	case errors.Is(err, service.ErrNoStatsYet):
		return c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "no data yet"})
	default:
		h.logger.Error("Request failed", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

func splitSymbols(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return fallback
	}
	return value
}
