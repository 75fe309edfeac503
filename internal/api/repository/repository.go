package repository

import (
	"context"

	"news-sentiment-api/internal/api/dto"
	"news-sentiment-api/internal/entity"
)

// NewsProviderRepository retrieves raw article pages from the upstream news
// provider, normalized into the canonical article shape.
type NewsProviderRepository interface {
	ListArticles(ctx context.Context, symbols []string, page, limit int) ([]entity.Article, error)
}

// SentimentAnalyzerRepository classifies text through the external inference
// service, returning the raw (label, score) candidates.
type SentimentAnalyzerRepository interface {
	Classify(ctx context.Context, text string) ([]dto.SentimentCandidate, error)
}

// ArticleRepository is the durable store of articles and their derived
// content and sentiment partitions.
type ArticleRepository interface {
	Upsert(ctx context.Context, article *entity.Article) error
	QueryRecent(ctx context.Context, symbols []string, limit int) ([]entity.Article, error)
	SentimentStats(ctx context.Context, symbols []string) (*dto.SentimentStats, error)
	Ping(ctx context.Context) error
}
