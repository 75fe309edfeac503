package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"news-sentiment-api/internal/api/config"
	"news-sentiment-api/internal/api/dto"
	"news-sentiment-api/internal/api/repository"
	"news-sentiment-api/internal/entity"
	"news-sentiment-api/pkg/cache"
	"news-sentiment-api/pkg/common"
	"news-sentiment-api/pkg/logger"
	"news-sentiment-api/pkg/ratelimit"
)

// ErrRateLimited is returned when a request for the same operation and symbol
// filter arrives inside the cool-down window.
var ErrRateLimited = errors.New("too many requests for this symbol filter")

// ErrNoStatsYet is returned when no statistics have been cached for the
// requested symbol filter.
var ErrNoStatsYet = errors.New("no statistics available yet for this symbol filter")

// NewsService orchestrates the aggregation pipeline: admission control, cache,
// store, live fetch with sentiment enrichment, and write-back.
type NewsService interface {
	GetNews(ctx context.Context, symbols []string, page, limit int) ([]entity.Article, error)
	RefreshNews(ctx context.Context, symbols []string) ([]entity.Article, error)
	GetStats(ctx context.Context, symbols []string) (*dto.SentimentStats, error)
	Health(ctx context.Context) *dto.HealthResponse
}

// NewNewsService creates a new NewsService.
func NewNewsService(
	cfg *config.Config,
	articleRepo repository.ArticleRepository,
	provider repository.NewsProviderRepository,
	analyzer repository.SentimentAnalyzerRepository,
	store cache.Store,
	limiter *ratelimit.KeyedLimiter,
	log *logger.Logger,
) NewsService {
	return &newsService{
		cfg:         cfg,
		articleRepo: articleRepo,
		fetcher:     newNewsFetcher(provider, analyzer, cfg.News.PageCount, cfg.News.AnnotationConcurrency, log),
		cache:       store,
		limiter:     limiter,
		logger:      log,
	}
}

type newsService struct {
	cfg         *config.Config
	articleRepo repository.ArticleRepository
	fetcher     *newsFetcher
	cache       cache.Store
	limiter     *ratelimit.KeyedLimiter
	logger      *logger.Logger
}

// GetNews answers "up to limit recent articles for this symbol filter",
// preferring cache, then the store's fresh records, then a live fetch that is
// persisted and cached on the way out.
func (s *newsService) GetNews(ctx context.Context, symbols []string, page, limit int) ([]entity.Article, error) {
	symbols = cache.CanonicalSymbols(symbols)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.cfg.News.DefaultLimit
	}

	if !s.limiter.Admit(common.OperationRead, filterKey(symbols)) {
		return nil, ErrRateLimited
	}

	key := cache.NewsKey(symbols, page, limit)
	if articles, ok := s.cachedArticles(ctx, key); ok {
		return articles, nil
	}

	// The store contract has no paging; only the first page can be served
	// from stored records.
	if page == 1 {
		stored, err := s.articleRepo.QueryRecent(ctx, symbols, limit)
		if err != nil {
			s.logger.Warn("Store lookup failed, falling through to live fetch", logger.ErrorField(err))
		} else if len(stored) > 0 {
			s.fillCache(ctx, key, symbols, stored)
			return stored, nil
		}
	}

	return s.liveFetch(ctx, key, symbols, page, limit)
}

// RefreshNews bypasses cache and store reads and always performs a live
// fetch for the first page window.
func (s *newsService) RefreshNews(ctx context.Context, symbols []string) ([]entity.Article, error) {
	symbols = cache.CanonicalSymbols(symbols)
	if !s.limiter.Admit(common.OperationRefresh, filterKey(symbols)) {
		return nil, ErrRateLimited
	}

	limit := s.cfg.News.DefaultLimit
	return s.liveFetch(ctx, cache.NewsKey(symbols, 1, limit), symbols, 1, limit)
}

// liveFetch runs the fan-out fetch, annotates, orders, persists and fills the
// cache. Persistence failure is a hard failure; an empty upstream result is
// served as an empty list.
func (s *newsService) liveFetch(ctx context.Context, key cache.Key, symbols []string, page, limit int) ([]entity.Article, error) {
	articles := s.fetcher.FetchAll(ctx, symbols, page, limit)
	sortArticles(articles)

	for i := range articles {
		if err := s.articleRepo.Upsert(ctx, &articles[i]); err != nil {
			s.logger.Error("Failed to persist article",
				logger.StringField("article_id", articles[i].ExternalID),
				logger.ErrorField(err),
			)
			return nil, fmt.Errorf("failed to persist article %s: %w", articles[i].ExternalID, err)
		}
	}

	if len(articles) > limit {
		articles = articles[:limit]
	}

	// An empty result means every upstream unit failed or matched nothing;
	// caching it would hide recovery for a full TTL.
	if len(articles) > 0 {
		s.fillCache(ctx, key, symbols, articles)
	}

	return articles, nil
}

// GetStats reads the statistics summary from cache only; a missing key is the
// distinct "no data yet" condition. Stats summarize the most recently served
// result set, not the full store.
func (s *newsService) GetStats(ctx context.Context, symbols []string) (*dto.SentimentStats, error) {
	payload, ok := s.cache.Get(ctx, cache.StatsKey(cache.CanonicalSymbols(symbols)))
	if !ok {
		return nil, ErrNoStatsYet
	}

	var stats dto.SentimentStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached stats: %w", err)
	}
	return &stats, nil
}

// Health reports cache size and store reachability.
func (s *newsService) Health(ctx context.Context) *dto.HealthResponse {
	resp := &dto.HealthResponse{
		Status:    "healthy",
		Store:     "reachable",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	size, err := s.cache.Size(ctx)
	if err != nil {
		s.logger.Warn("Failed to read cache size", logger.ErrorField(err))
	}
	resp.CacheSize = size

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.articleRepo.Ping(pingCtx); err != nil {
		resp.Status = "degraded"
		resp.Store = "unreachable"
	}

	return resp
}

// cachedArticles returns the cached result set for key when present.
func (s *newsService) cachedArticles(ctx context.Context, key cache.Key) ([]entity.Article, bool) {
	payload, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	var articles []entity.Article
	if err := json.Unmarshal(payload, &articles); err != nil {
		s.logger.Warn("Failed to unmarshal cached articles", logger.ErrorField(err))
		return nil, false
	}
	return articles, true
}

// fillCache stores the served result set and refreshes the statistics
// summary for the same symbol filter. Cache problems only degrade.
func (s *newsService) fillCache(ctx context.Context, key cache.Key, symbols []string, articles []entity.Article) {
	payload, err := json.Marshal(articles)
	if err != nil {
		s.logger.Warn("Failed to marshal articles for cache", logger.ErrorField(err))
		return
	}
	if err := s.cache.Set(ctx, key, payload); err != nil {
		s.logger.Warn("Failed to fill news cache", logger.ErrorField(err))
	}

	stats, err := s.articleRepo.SentimentStats(ctx, symbols)
	if err != nil {
		s.logger.Warn("Failed to aggregate stats for cache", logger.ErrorField(err))
		return
	}
	statsPayload, err := json.Marshal(stats)
	if err != nil {
		s.logger.Warn("Failed to marshal stats for cache", logger.ErrorField(err))
		return
	}
	if err := s.cache.Set(ctx, cache.StatsKey(symbols), statsPayload); err != nil {
		s.logger.Warn("Failed to fill stats cache", logger.ErrorField(err))
	}
}

// filterKey renders a canonical symbol filter for admission control.
func filterKey(symbols []string) string {
	return strings.Join(symbols, ",")
}
