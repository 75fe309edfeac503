package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"news-sentiment-api/internal/api/repository"
	"news-sentiment-api/internal/entity"
	"news-sentiment-api/pkg/logger"
	"news-sentiment-api/pkg/utils"
)

// newsFetcher fans out page retrieval against the provider and annotates the
// merged result with sentiment. Failed pages and failed annotations are
// absorbed per unit; they never abort the batch.
type newsFetcher struct {
	provider              repository.NewsProviderRepository
	analyzer              repository.SentimentAnalyzerRepository
	logger                *logger.Logger
	pageCount             int
	annotationConcurrency int
}

func newNewsFetcher(provider repository.NewsProviderRepository, analyzer repository.SentimentAnalyzerRepository, pageCount, annotationConcurrency int, log *logger.Logger) *newsFetcher {
	return &newsFetcher{
		provider:              provider,
		analyzer:              analyzer,
		logger:                log,
		pageCount:             pageCount,
		annotationConcurrency: annotationConcurrency,
	}
}

// FetchAll retrieves pageCount provider pages starting at startPage
// concurrently, merges the successful ones, de-duplicates by identifier and
// annotates every article. The returned set is deterministic for identical
// upstream responses regardless of completion order; ordering is left to the
// caller.
func (f *newsFetcher) FetchAll(ctx context.Context, symbols []string, startPage, perPage int) []entity.Article {
	start := time.Now()
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		all []entity.Article
	)

	for i := 0; i < f.pageCount; i++ {
		page := startPage + i
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			articles, err := f.provider.ListArticles(ctx, symbols, page, perPage)
			if err != nil {
				// A failed page contributes zero articles.
				f.logger.Warn("Page fetch failed",
					logger.IntField("page", page),
					logger.StringField("symbols", strings.Join(symbols, ",")),
					logger.ErrorField(err),
				)
				return
			}
			mu.Lock()
			all = append(all, articles...)
			mu.Unlock()
		})
	}
	wg.Wait()

	merged := dedupeByExternalID(all)
	f.annotateAll(ctx, merged)

	f.logger.Info("Fetched and annotated news",
		logger.StringField("symbols", strings.Join(symbols, ",")),
		logger.IntField("count", len(merged)),
		logger.DurationField("duration", time.Since(start)),
	)
	return merged
}

// annotateAll classifies every article concurrently under the configured cap.
func (f *newsFetcher) annotateAll(ctx context.Context, articles []entity.Article) {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, f.annotationConcurrency)

	for i := range articles {
		i := i // capture per-iteration; the go directive predates Go 1.22 loopvar semantics
		wg.Add(1)
		utils.GoSafe(func() {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			label, confidence := f.annotateOne(ctx, articles[i])
			articles[i].Sentiment = label
			articles[i].SentimentConfidence = confidence
		})
	}
	wg.Wait()
}

// annotateOne classifies a single article, degrading to the neutral default
// on any failure so annotation can never abort ingestion.
func (f *newsFetcher) annotateOne(ctx context.Context, article entity.Article) (entity.SentimentLabel, float64) {
	text := fmt.Sprintf("%s. %s", article.Title, article.Description)

	candidates, err := f.analyzer.Classify(ctx, text)
	if err != nil {
		f.logger.Warn("Sentiment classification failed, using neutral default",
			logger.StringField("article_id", article.ExternalID),
			logger.ErrorField(err),
		)
		return entity.SentimentNeutral, entity.DefaultSentimentConfidence
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}

	return mapSentimentLabel(best.Label), best.Score
}

// mapSentimentLabel folds a provider label into the enumerated set,
// case-insensitively, with neutral as the fallback for anything unrecognized.
func mapSentimentLabel(label string) entity.SentimentLabel {
	switch strings.ToUpper(label) {
	case string(entity.SentimentPositive):
		return entity.SentimentPositive
	case string(entity.SentimentNegative):
		return entity.SentimentNegative
	case string(entity.SentimentNeutral):
		return entity.SentimentNeutral
	default:
		return entity.SentimentNeutral
	}
}

// dedupeByExternalID keeps one article per identifier, preferring the first
// seen after a deterministic ordering pass so duplicates across pages cannot
// make the set depend on fetch completion order.
func dedupeByExternalID(articles []entity.Article) []entity.Article {
	sortArticles(articles)
	seen := make(map[string]struct{}, len(articles))
	out := articles[:0]
	for _, a := range articles {
		if _, ok := seen[a.ExternalID]; ok {
			continue
		}
		seen[a.ExternalID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// sortArticles orders by publication timestamp descending, identifier
// ascending on ties.
func sortArticles(articles []entity.Article) {
	sort.Slice(articles, func(i, j int) bool {
		if !articles[i].PublishedAt.Equal(articles[j].PublishedAt) {
			return articles[i].PublishedAt.After(articles[j].PublishedAt)
		}
		return articles[i].ExternalID < articles[j].ExternalID
	})
}
