package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-sentiment-api/internal/api/config"
	"news-sentiment-api/internal/api/dto"
	"news-sentiment-api/internal/api/repository"
	"news-sentiment-api/internal/entity"
	"news-sentiment-api/pkg/cache"
	"news-sentiment-api/pkg/ratelimit"
)

type fakeArticleRepo struct {
	mu        sync.Mutex
	upserts   []entity.Article
	upsertErr error
	recent    []entity.Article
	recentErr error
	stats     *dto.SentimentStats
	pingErr   error
}

func (f *fakeArticleRepo) Upsert(ctx context.Context, article *entity.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts = append(f.upserts, *article)
	return nil
}

func (f *fakeArticleRepo) QueryRecent(ctx context.Context, symbols []string, limit int) ([]entity.Article, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	return f.recent, nil
}

func (f *fakeArticleRepo) SentimentStats(ctx context.Context, symbols []string) (*dto.SentimentStats, error) {
	if f.stats != nil {
		return f.stats, nil
	}
	return &dto.SentimentStats{Symbols: symbols, Labels: map[string]dto.LabelStats{}}, nil
}

func (f *fakeArticleRepo) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeArticleRepo) upserted() []entity.Article {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entity.Article(nil), f.upserts...)
}

var _ repository.ArticleRepository = (*fakeArticleRepo)(nil)

type serviceFixture struct {
	svc      NewsService
	provider *fakeProvider
	analyzer *fakeAnalyzer
	articles *fakeArticleRepo
	store    cache.Store
}

func newServiceFixture(t *testing.T, window time.Duration) *serviceFixture {
	t.Helper()

	cfg := &config.Config{
		News: config.News{
			CacheTTL:              10 * time.Minute,
			CacheMaxEntries:       16,
			RateLimitWindow:       window,
			FreshnessWindow:       24 * time.Hour,
			PageCount:             3,
			AnnotationConcurrency: 2,
			DefaultLimit:          10,
		},
	}

	provider := &fakeProvider{pages: map[int][]entity.Article{}}
	analyzer := &fakeAnalyzer{}
	articles := &fakeArticleRepo{}
	store := cache.NewMemoryStore(cfg.News.CacheTTL, cfg.News.CacheMaxEntries)
	limiter := ratelimit.NewKeyedLimiter(window)

	return &serviceFixture{
		svc:      NewNewsService(cfg, articles, provider, analyzer, store, limiter, newTestLogger()),
		provider: provider,
		analyzer: analyzer,
		articles: articles,
		store:    store,
	}
}

func TestNewsService_GetNewsFetchesPersistsAndCaches(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	fx.provider.pages[1] = []entity.Article{
		testArticle("a", base.Add(time.Hour)),
		testArticle("b", base),
	}
	fx.analyzer.candidates = map[string][]dto.SentimentCandidate{
		fmt.Sprintf("%s. %s", "title a", "description a"): {{Label: "positive", Score: 0.91}},
	}
	fx.analyzer.errFor = map[string]error{
		fmt.Sprintf("%s. %s", "title b", "description b"): errors.New("inference timeout"),
	}

	got, err := fx.svc.GetNews(context.Background(), []string{"aapl"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by publication time descending.
	assert.Equal(t, "a", got[0].ExternalID)
	assert.Equal(t, entity.SentimentPositive, got[0].Sentiment)
	assert.InDelta(t, 0.91, got[0].SentimentConfidence, 1e-9)

	// The failed annotation degrades but the article is still served and
	// persisted alongside the successful one.
	assert.Equal(t, entity.SentimentNeutral, got[1].Sentiment)
	assert.Equal(t, entity.DefaultSentimentConfidence, got[1].SentimentConfidence)
	assert.Len(t, fx.articles.upserted(), 2)

	// The result set is now cached under the canonical key.
	_, ok := fx.store.Get(context.Background(), cache.NewsKey([]string{"AAPL"}, 1, 10))
	assert.True(t, ok)
}

func TestNewsService_GetNewsRateLimitsRepeatedFilter(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)

	_, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	require.NoError(t, err)
	callsAfterFirst := len(fx.provider.requestedPages())

	_, err = fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	assert.ErrorIs(t, err, ErrRateLimited)

	// The rejected request must not reach the provider.
	assert.Equal(t, callsAfterFirst, len(fx.provider.requestedPages()))

	// A different symbol filter is admitted independently.
	_, err = fx.svc.GetNews(context.Background(), []string{"TSLA"}, 1, 10)
	assert.NoError(t, err)
}

func TestNewsService_GetNewsServesCacheWithoutUpstream(t *testing.T) {
	fx := newServiceFixture(t, 2*time.Millisecond)
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	fx.provider.pages[1] = []entity.Article{testArticle("a", base)}

	first, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, first, 1)
	callsAfterFirst := len(fx.provider.requestedPages())

	time.Sleep(10 * time.Millisecond)

	second, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, len(fx.provider.requestedPages()))
}

func TestNewsService_GetNewsPrefersStoredRecords(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	stored := testArticle("stored", base)
	stored.Sentiment = entity.SentimentPositive
	stored.SentimentConfidence = 0.8
	fx.articles.recent = []entity.Article{stored}

	got, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "stored", got[0].ExternalID)
	assert.Empty(t, fx.provider.requestedPages())
}

func TestNewsService_GetNewsStoreFailureFallsThroughToLive(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	fx.articles.recentErr = errors.New("connection refused")
	fx.provider.pages[1] = []entity.Article{testArticle("a", base)}

	got, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.NotEmpty(t, fx.provider.requestedPages())
}

func TestNewsService_GetNewsLaterPageSkipsStore(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	fx.articles.recent = []entity.Article{testArticle("stored", base)}
	fx.provider.pages[2] = []entity.Article{testArticle("live", base)}

	got, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 2, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "live", got[0].ExternalID)
	assert.ElementsMatch(t, []int{2, 3, 4}, fx.provider.requestedPages())
}

func TestNewsService_GetNewsPersistFailureIsHard(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	fx.provider.pages[1] = []entity.Article{testArticle("a", base)}
	fx.articles.upsertErr = errors.New("disk full")

	_, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	assert.Error(t, err)
}

func TestNewsService_GetNewsTruncatesToLimit(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	fx.provider.pages[1] = []entity.Article{
		testArticle("a", base.Add(3*time.Hour)),
		testArticle("b", base.Add(2*time.Hour)),
		testArticle("c", base.Add(time.Hour)),
	}

	got, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ExternalID)
	assert.Equal(t, "b", got[1].ExternalID)
	// Truncation happens after persistence, so all three are stored.
	assert.Len(t, fx.articles.upserted(), 3)
}

func TestNewsService_RefreshNewsBypassesCacheAndStore(t *testing.T) {
	fx := newServiceFixture(t, 2*time.Millisecond)
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	fx.articles.recent = []entity.Article{testArticle("stored", base)}
	fx.provider.pages[1] = []entity.Article{testArticle("live", base)}

	_, err := fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	got, err := fx.svc.RefreshNews(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "live", got[0].ExternalID)
	assert.ElementsMatch(t, []int{1, 2, 3}, fx.provider.requestedPages())
}

func TestNewsService_RefreshNewsRateLimited(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)

	_, err := fx.svc.RefreshNews(context.Background(), []string{"AAPL"})
	require.NoError(t, err)

	_, err = fx.svc.RefreshNews(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestNewsService_GetStats(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)

	_, err := fx.svc.GetStats(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, ErrNoStatsYet)

	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	fx.provider.pages[1] = []entity.Article{testArticle("a", base)}
	fx.articles.stats = &dto.SentimentStats{
		Symbols: []string{"AAPL"},
		Labels: map[string]dto.LabelStats{
			"NEUTRAL": {Count: 1, AverageConfidence: 0.6},
		},
	}

	_, err = fx.svc.GetNews(context.Background(), []string{"AAPL"}, 1, 10)
	require.NoError(t, err)

	stats, err := fx.svc.GetStats(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, stats.Symbols)
	assert.EqualValues(t, 1, stats.Labels["NEUTRAL"].Count)
}

func TestNewsService_Health(t *testing.T) {
	fx := newServiceFixture(t, 10*time.Second)

	resp := fx.svc.Health(context.Background())
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "reachable", resp.Store)

	fx.articles.pingErr = errors.New("store down")
	resp = fx.svc.Health(context.Background())
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unreachable", resp.Store)
}
