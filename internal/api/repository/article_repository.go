package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"news-sentiment-api/internal/api/dto"
	"news-sentiment-api/internal/entity"
	"news-sentiment-api/pkg/cache"
	"news-sentiment-api/pkg/logger"
)

// NewArticleRepository creates a new instance of ArticleRepository. The
// freshness window bounds which records QueryRecent may return.
func NewArticleRepository(db *gorm.DB, freshnessWindow time.Duration, log *logger.Logger) ArticleRepository {
	return &articleRepository{db: db, freshnessWindow: freshnessWindow, logger: log}
}

type articleRepository struct {
	db              *gorm.DB
	freshnessWindow time.Duration
	logger          *logger.Logger
}

// Upsert writes the base, content and sentiment partitions of an article in a
// single transaction, keyed by the provider identifier. Repeated upserts of
// the same identifier replace the partitions (last writer wins); they never
// duplicate the record.
func (r *articleRepository) Upsert(ctx context.Context, article *entity.Article) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		symbols := article.RelatedSymbols
		if symbols == nil {
			symbols = []string{}
		}

		record := entity.ArticleRecord{
			ExternalID:     article.ExternalID,
			Source:         article.Source,
			URL:            article.URL,
			PublishedAt:    article.PublishedAt,
			RelatedSymbols: pq.StringArray(symbols),
			IngestedAt:     article.IngestedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"source", "url", "published_at", "related_symbols", "updated_at"}),
		}).Create(&record).Error; err != nil {
			return fmt.Errorf("failed to upsert article record: %w", err)
		}

		entities, err := json.Marshal(article.Entities)
		if err != nil {
			return fmt.Errorf("failed to marshal article entities: %w", err)
		}
		content := entity.ArticleContent{
			ExternalID:  article.ExternalID,
			Title:       article.Title,
			Description: article.Description,
			Entities:    entities,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description", "entities", "updated_at"}),
		}).Create(&content).Error; err != nil {
			return fmt.Errorf("failed to upsert article content: %w", err)
		}

		// The sentiment partition completes the record; until it exists the
		// article stays invisible to the read path.
		if article.Sentiment == "" {
			return nil
		}
		sentiment := entity.ArticleSentiment{
			ExternalID:  article.ExternalID,
			Label:       string(article.Sentiment),
			Confidence:  article.SentimentConfidence,
			AnnotatedAt: time.Now().UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"label", "confidence", "annotated_at", "updated_at"}),
		}).Create(&sentiment).Error; err != nil {
			return fmt.Errorf("failed to upsert article sentiment: %w", err)
		}

		return nil
	})
}

type articleRow struct {
	ExternalID     string
	Source         string
	URL            string
	PublishedAt    time.Time
	RelatedSymbols pq.StringArray `gorm:"type:text[]"`
	IngestedAt     time.Time
	Title          string
	Description    string
	Label          string
	Confidence     float64
}

// QueryRecent returns at most limit articles ingested inside the freshness
// window whose related symbols intersect the filter (all articles when the
// filter is empty), joined across the three partitions and ordered by
// publication timestamp descending with identifier ascending as tiebreak.
// Staleness never deletes a record; it only excludes it here.
func (r *articleRepository) QueryRecent(ctx context.Context, symbols []string, limit int) ([]entity.Article, error) {
	freshSince := time.Now().UTC().Add(-r.freshnessWindow)
	var (
		qBuilder strings.Builder
		qParam   = []interface{}{}
		rows     []articleRow
	)

	qBuilder.WriteString(`
	SELECT
		a.external_id,
		a.source,
		a.url,
		a.published_at,
		a.related_symbols,
		a.ingested_at,
		c.title,
		c.description,
		s.label,
		s.confidence
	FROM articles AS a
	JOIN article_contents AS c ON c.external_id = a.external_id
	JOIN article_sentiments AS s ON s.external_id = a.external_id
	WHERE a.ingested_at >= ?
`)
	qParam = append(qParam, freshSince)

	symbols = cache.CanonicalSymbols(symbols)
	if len(symbols) > 0 {
		qBuilder.WriteString(" AND a.related_symbols && ?")
		qParam = append(qParam, pq.Array(symbols))
	}

	qBuilder.WriteString(" ORDER BY a.published_at DESC, a.external_id ASC LIMIT ?")
	qParam = append(qParam, limit)

	if err := r.db.WithContext(ctx).Raw(qBuilder.String(), qParam...).Scan(&rows).Error; err != nil {
		r.logger.Error("Failed to query recent articles", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to query recent articles: %w", err)
	}

	articles := make([]entity.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, entity.Article{
			ExternalID:          row.ExternalID,
			Title:               row.Title,
			Description:         row.Description,
			Source:              row.Source,
			URL:                 row.URL,
			PublishedAt:         row.PublishedAt,
			RelatedSymbols:      []string(row.RelatedSymbols),
			IngestedAt:          row.IngestedAt,
			Sentiment:           entity.SentimentLabel(row.Label),
			SentimentConfidence: row.Confidence,
		})
	}

	return articles, nil
}

// SentimentStats aggregates stored sentiment per label over every article
// matching the symbol filter. Unlike QueryRecent it is not bounded by the
// freshness window.
func (r *articleRepository) SentimentStats(ctx context.Context, symbols []string) (*dto.SentimentStats, error) {
	var (
		qBuilder strings.Builder
		qParam   = []interface{}{}
	)

	qBuilder.WriteString(`
	SELECT
		s.label,
		COUNT(*) AS count,
		AVG(s.confidence) AS average_confidence
	FROM article_sentiments AS s
	JOIN articles AS a ON a.external_id = s.external_id
`)

	symbols = cache.CanonicalSymbols(symbols)
	if len(symbols) > 0 {
		qBuilder.WriteString(" WHERE a.related_symbols && ?")
		qParam = append(qParam, pq.Array(symbols))
	}
	qBuilder.WriteString(" GROUP BY s.label")

	var rows []struct {
		Label             string
		Count             int64
		AverageConfidence float64
	}
	if err := r.db.WithContext(ctx).Raw(qBuilder.String(), qParam...).Scan(&rows).Error; err != nil {
		r.logger.Error("Failed to aggregate sentiment stats", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to aggregate sentiment stats: %w", err)
	}

	stats := &dto.SentimentStats{
		Symbols:     symbols,
		Labels:      make(map[string]dto.LabelStats, len(rows)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, row := range rows {
		stats.Labels[row.Label] = dto.LabelStats{
			Count:             row.Count,
			AverageConfidence: row.AverageConfidence,
		}
	}

	return stats, nil
}

// Ping verifies the store is reachable.
func (r *articleRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
