package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"news-sentiment-api/internal/api/config"
	"news-sentiment-api/internal/api/dto"
	"news-sentiment-api/internal/entity"
	"news-sentiment-api/pkg/logger"
)

const equityEntityType = "equity"

// marketauxRepository is an implementation of NewsProviderRepository backed by
// the Marketaux news API.
type marketauxRepository struct {
	client *http.Client
	cfg    *config.Config
	logger *logger.Logger
}

// NewMarketauxRepository creates a new instance of marketauxRepository.
func NewMarketauxRepository(cfg *config.Config, log *logger.Logger) NewsProviderRepository {
	return &marketauxRepository{
		client: &http.Client{
			Timeout: cfg.Marketaux.Timeout,
		},
		cfg:    cfg,
		logger: log,
	}
}

// ListArticles fetches one page of provider results and normalizes every raw
// record into the canonical article shape. Normalization happens here exactly
// once; all downstream consumers see the canonical shape.
func (r *marketauxRepository) ListArticles(ctx context.Context, symbols []string, page, limit int) ([]entity.Article, error) {
	params := url.Values{}
	params.Set("api_token", r.cfg.Marketaux.APIToken)
	params.Set("symbols", strings.Join(symbols, ","))
	params.Set("filter_entities", "true")
	params.Set("language", r.cfg.Marketaux.Language)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/news/all?%s", r.cfg.Marketaux.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create news request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch news page %d: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("Received non-OK response from Marketaux",
			logger.IntField("status_code", resp.StatusCode),
			logger.IntField("page", page),
		)
		return nil, fmt.Errorf("received non-OK response from Marketaux: %d", resp.StatusCode)
	}

	var providerResp dto.MarketauxResponse
	if err := json.NewDecoder(resp.Body).Decode(&providerResp); err != nil {
		return nil, fmt.Errorf("failed to decode Marketaux response: %w", err)
	}

	ingestedAt := time.Now().UTC()
	articles := make([]entity.Article, 0, len(providerResp.Data))
	for _, raw := range providerResp.Data {
		articles = append(articles, normalizeArticle(raw, ingestedAt))
	}

	r.logger.Debug("Fetched news page",
		logger.IntField("page", page),
		logger.IntField("count", len(articles)),
	)

	return articles, nil
}

// normalizeArticle maps one raw provider record to the canonical shape. The
// description falls back to the provider snippet and related symbols are the
// equity-typed entities projected to their symbol field.
func normalizeArticle(raw dto.MarketauxArticle, ingestedAt time.Time) entity.Article {
	description := raw.Description
	if description == "" {
		description = raw.Snippet
	}

	symbols := make([]string, 0, len(raw.Entities))
	entities := make([]entity.ArticleEntity, 0, len(raw.Entities))
	for _, e := range raw.Entities {
		entities = append(entities, entity.ArticleEntity{Symbol: e.Symbol, Name: e.Name, Type: e.Type})
		if e.Type != equityEntityType || e.Symbol == "" {
			continue
		}
		symbols = append(symbols, e.Symbol)
	}

	return entity.Article{
		ExternalID:     raw.UUID,
		Title:          raw.Title,
		Description:    description,
		Source:         raw.Source,
		URL:            raw.URL,
		PublishedAt:    raw.PublishedAt,
		RelatedSymbols: symbols,
		IngestedAt:     ingestedAt,
		Entities:       entities,
	}
}
