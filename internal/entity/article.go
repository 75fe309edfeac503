package entity

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// SentimentLabel is the enumerated sentiment of an article.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
	SentimentNegative SentimentLabel = "NEGATIVE"
)

// DefaultSentimentConfidence is assigned together with SentimentNeutral when
// the inference service fails for an article.
const DefaultSentimentConfidence = 0.5

// ArticleEntity is one provider-tagged entity on an article.
type ArticleEntity struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Type   string `json:"type"`
}

// Article is the canonical enriched article served to clients. It is the
// read-time join of the base, content and sentiment partitions.
type Article struct {
	ExternalID          string         `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	Source              string         `json:"source"`
	URL                 string         `json:"url"`
	PublishedAt         time.Time      `json:"publishedAt"`
	RelatedSymbols      []string       `json:"relatedSymbols"`
	IngestedAt          time.Time      `json:"ingestedAt"`
	Sentiment           SentimentLabel `json:"sentiment,omitempty"`
	SentimentConfidence float64        `json:"sentimentConfidence,omitempty"`

	// Entities is the provider's full tagged entity list, kept on the
	// content partition so symbols can be re-derived. Not serialized upward.
	Entities []ArticleEntity `json:"-"`
}

// ArticleRecord is the base persistence partition, keyed by the provider's
// globally unique identifier.
type ArticleRecord struct {
	ID             uint           `gorm:"primaryKey"`
	ExternalID     string         `gorm:"uniqueIndex;not null"`
	Source         string         `gorm:"not null"`
	URL            string         `gorm:"not null"`
	PublishedAt    time.Time      `gorm:"index"`
	RelatedSymbols pq.StringArray `gorm:"type:text[]"`
	IngestedAt     time.Time      `gorm:"index"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the ArticleRecord model.
func (ArticleRecord) TableName() string {
	return "articles"
}

// ArticleContent holds the textual partition of an article. The raw provider
// entity list is kept alongside so symbols can be re-derived later.
type ArticleContent struct {
	ID          uint           `gorm:"primaryKey"`
	ExternalID  string         `gorm:"uniqueIndex;not null"`
	Title       string         `gorm:"not null"`
	Description string
	Entities    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the ArticleContent model.
func (ArticleContent) TableName() string {
	return "article_contents"
}

// ArticleSentiment holds the derived sentiment partition. Its presence marks
// an ingestion as complete; base rows without a sentiment row are not served.
type ArticleSentiment struct {
	ID          uint      `gorm:"primaryKey"`
	ExternalID  string    `gorm:"uniqueIndex;not null"`
	Label       string    `gorm:"not null"`
	Confidence  float64   `gorm:"not null"`
	AnnotatedAt time.Time `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the ArticleSentiment model.
func (ArticleSentiment) TableName() string {
	return "article_sentiments"
}
