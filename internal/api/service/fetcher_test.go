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
	"go.uber.org/zap"

	"news-sentiment-api/internal/api/dto"
	"news-sentiment-api/internal/entity"
	"news-sentiment-api/pkg/logger"
)

func newTestLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

// fakeProvider serves canned pages and records which pages were requested.
type fakeProvider struct {
	mu       sync.Mutex
	pages    map[int][]entity.Article
	failing  map[int]error
	requests []int
}

func (f *fakeProvider) ListArticles(ctx context.Context, symbols []string, page, limit int) ([]entity.Article, error) {
	f.mu.Lock()
	f.requests = append(f.requests, page)
	f.mu.Unlock()

	if err, ok := f.failing[page]; ok {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeProvider) requestedPages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.requests...)
}

// fakeAnalyzer returns canned candidates per input text, or a shared error.
type fakeAnalyzer struct {
	mu         sync.Mutex
	candidates map[string][]dto.SentimentCandidate
	err        error
	errFor     map[string]error
	calls      int
}

func (f *fakeAnalyzer) Classify(ctx context.Context, text string) ([]dto.SentimentCandidate, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if err, ok := f.errFor[text]; ok {
		return nil, err
	}
	if c, ok := f.candidates[text]; ok {
		return c, nil
	}
	return []dto.SentimentCandidate{{Label: "neutral", Score: 0.6}}, nil
}

func testArticle(id string, publishedAt time.Time) entity.Article {
	return entity.Article{
		ExternalID:  id,
		Title:       "title " + id,
		Description: "description " + id,
		PublishedAt: publishedAt,
	}
}

func TestNewsFetcher_FetchAllMergesPages(t *testing.T) {
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		pages: map[int][]entity.Article{
			1: {testArticle("a", base.Add(2 * time.Hour))},
			2: {testArticle("b", base.Add(time.Hour))},
			3: {testArticle("c", base)},
		},
	}
	fetcher := newNewsFetcher(provider, &fakeAnalyzer{}, 3, 2, newTestLogger())

	articles := fetcher.FetchAll(context.Background(), []string{"AAPL"}, 1, 10)

	require.Len(t, articles, 3)
	assert.ElementsMatch(t, []int{1, 2, 3}, provider.requestedPages())
}

func TestNewsFetcher_FetchAllStartsAtRequestedPage(t *testing.T) {
	provider := &fakeProvider{pages: map[int][]entity.Article{}}
	fetcher := newNewsFetcher(provider, &fakeAnalyzer{}, 3, 2, newTestLogger())

	fetcher.FetchAll(context.Background(), []string{"AAPL"}, 4, 10)

	assert.ElementsMatch(t, []int{4, 5, 6}, provider.requestedPages())
}

func TestNewsFetcher_FailedPageIsAbsorbed(t *testing.T) {
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		pages: map[int][]entity.Article{
			1: {testArticle("a", base.Add(time.Hour))},
			3: {testArticle("c", base)},
		},
		failing: map[int]error{2: errors.New("provider timeout")},
	}
	fetcher := newNewsFetcher(provider, &fakeAnalyzer{}, 3, 2, newTestLogger())

	articles := fetcher.FetchAll(context.Background(), []string{"AAPL"}, 1, 10)

	require.Len(t, articles, 2)
	ids := []string{articles[0].ExternalID, articles[1].ExternalID}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}

func TestNewsFetcher_DedupeAcrossPages(t *testing.T) {
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		pages: map[int][]entity.Article{
			1: {testArticle("shared", base), testArticle("a", base.Add(time.Hour))},
			2: {testArticle("shared", base)},
		},
	}
	fetcher := newNewsFetcher(provider, &fakeAnalyzer{}, 2, 2, newTestLogger())

	articles := fetcher.FetchAll(context.Background(), []string{"AAPL"}, 1, 10)

	require.Len(t, articles, 2)
}

func TestNewsFetcher_AnnotatesEveryArticle(t *testing.T) {
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		pages: map[int][]entity.Article{
			1: {testArticle("a", base), testArticle("b", base.Add(time.Hour))},
		},
	}
	analyzer := &fakeAnalyzer{
		candidates: map[string][]dto.SentimentCandidate{
			fmt.Sprintf("%s. %s", "title a", "description a"): {
				{Label: "negative", Score: 0.12},
				{Label: "positive", Score: 0.83},
			},
		},
	}
	fetcher := newNewsFetcher(provider, analyzer, 1, 2, newTestLogger())

	articles := fetcher.FetchAll(context.Background(), []string{"AAPL"}, 1, 10)

	require.Len(t, articles, 2)
	byID := map[string]entity.Article{}
	for _, a := range articles {
		byID[a.ExternalID] = a
	}

	// The highest-scoring candidate wins and its label is folded upper-case.
	assert.Equal(t, entity.SentimentPositive, byID["a"].Sentiment)
	assert.InDelta(t, 0.83, byID["a"].SentimentConfidence, 1e-9)
	assert.Equal(t, entity.SentimentNeutral, byID["b"].Sentiment)
	assert.Equal(t, 2, analyzer.calls)
}

func TestNewsFetcher_AnnotationFailureDegradesToNeutral(t *testing.T) {
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		pages: map[int][]entity.Article{1: {testArticle("a", base)}},
	}
	analyzer := &fakeAnalyzer{err: errors.New("inference unavailable")}
	fetcher := newNewsFetcher(provider, analyzer, 1, 2, newTestLogger())

	articles := fetcher.FetchAll(context.Background(), []string{"AAPL"}, 1, 10)

	require.Len(t, articles, 1)
	assert.Equal(t, entity.SentimentNeutral, articles[0].Sentiment)
	assert.Equal(t, entity.DefaultSentimentConfidence, articles[0].SentimentConfidence)
}

func TestMapSentimentLabel(t *testing.T) {
	assert.Equal(t, entity.SentimentPositive, mapSentimentLabel("positive"))
	assert.Equal(t, entity.SentimentPositive, mapSentimentLabel("POSITIVE"))
	assert.Equal(t, entity.SentimentNegative, mapSentimentLabel("Negative"))
	assert.Equal(t, entity.SentimentNeutral, mapSentimentLabel("neutral"))
	assert.Equal(t, entity.SentimentNeutral, mapSentimentLabel("LABEL_1"))
}

func TestSortArticles(t *testing.T) {
	base := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	articles := []entity.Article{
		testArticle("b", base),
		testArticle("c", base.Add(time.Hour)),
		testArticle("a", base),
	}

	sortArticles(articles)

	assert.Equal(t, "c", articles[0].ExternalID)
	// Equal timestamps break ties on identifier ascending.
	assert.Equal(t, "a", articles[1].ExternalID)
	assert.Equal(t, "b", articles[2].ExternalID)
}
