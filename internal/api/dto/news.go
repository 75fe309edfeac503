package dto

import (
	"time"

	"news-sentiment-api/internal/entity"
)

// NewsArticleResponse is the wire shape of an enriched article.
type NewsArticleResponse struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Source              string    `json:"source"`
	URL                 string    `json:"url"`
	PublishedAt         time.Time `json:"publishedAt"`
	RelatedSymbols      []string  `json:"relatedSymbols"`
	Sentiment           string    `json:"sentiment,omitempty"`
	SentimentConfidence float64   `json:"sentimentConfidence,omitempty"`
}

// NewsArticleFromEntity maps a domain article to its wire shape.
func NewsArticleFromEntity(a entity.Article) NewsArticleResponse {
	symbols := a.RelatedSymbols
	if symbols == nil {
		symbols = []string{}
	}
	return NewsArticleResponse{
		ID:                  a.ExternalID,
		Title:               a.Title,
		Description:         a.Description,
		Source:              a.Source,
		URL:                 a.URL,
		PublishedAt:         a.PublishedAt,
		RelatedSymbols:      symbols,
		Sentiment:           string(a.Sentiment),
		SentimentConfidence: a.SentimentConfidence,
	}
}

// NewsArticlesFromEntities maps a slice of domain articles.
func NewsArticlesFromEntities(articles []entity.Article) []NewsArticleResponse {
	out := make([]NewsArticleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, NewsArticleFromEntity(a))
	}
	return out
}

// LabelStats aggregates stored sentiment for one label.
type LabelStats struct {
	Count             int64   `json:"count"`
	AverageConfidence float64 `json:"average_confidence"`
}

// SentimentStats is the per-label aggregation for a symbol filter.
type SentimentStats struct {
	Symbols     []string              `json:"symbols"`
	Labels      map[string]LabelStats `json:"labels"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// HealthResponse reports process and dependency health.
type HealthResponse struct {
	Status    string `json:"status"`
	CacheSize int    `json:"cache_size"`
	Store     string `json:"store"`
	Timestamp string `json:"timestamp"`
}
