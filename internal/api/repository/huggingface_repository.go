package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"news-sentiment-api/internal/api/config"
	"news-sentiment-api/internal/api/dto"
	"news-sentiment-api/pkg/logger"
)

// huggingFaceRepository is an implementation of SentimentAnalyzerRepository
// that calls a HuggingFace inference endpoint.
type huggingFaceRepository struct {
	client         *http.Client
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewHuggingFaceRepository creates a new instance of huggingFaceRepository.
func NewHuggingFaceRepository(cfg *config.Config, log *logger.Logger) SentimentAnalyzerRepository {
	secondsPerRequest := time.Minute / time.Duration(cfg.HuggingFace.MaxRequestPerMinute)
	requestLimiter := rate.NewLimiter(rate.Every(secondsPerRequest), 1)

	return &huggingFaceRepository{
		client: &http.Client{
			Timeout: cfg.HuggingFace.Timeout,
		},
		cfg:            cfg,
		logger:         log,
		requestLimiter: requestLimiter,
	}
}

// Classify sends text to the inference endpoint and returns the raw candidate
// list. Any transport, status or payload problem is returned as an error; the
// caller decides how to degrade.
func (r *huggingFaceRepository) Classify(ctx context.Context, text string) ([]dto.SentimentCandidate, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	jsonBody, err := json.Marshal(dto.HuggingFaceRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.HuggingFace.URL, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create inference request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.cfg.HuggingFace.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("Received non-OK response from inference service",
			logger.IntField("status_code", resp.StatusCode),
		)
		return nil, fmt.Errorf("received non-OK response from inference service: %d", resp.StatusCode)
	}

	var candidates [][]dto.SentimentCandidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("failed to decode inference response: %w", err)
	}

	if len(candidates) == 0 || len(candidates[0]) == 0 {
		return nil, fmt.Errorf("received empty candidate list from inference service")
	}

	return candidates[0], nil
}
