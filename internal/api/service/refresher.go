package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"news-sentiment-api/internal/api/config"
	"news-sentiment-api/pkg/logger"
	"news-sentiment-api/pkg/utils"
)

// Refresher periodically warms the cache and store by forcing a live fetch
// for configured symbol sets.
type Refresher struct {
	cfg     *config.Config
	news    NewsService
	logger  *logger.Logger
	cron    *cron.Cron
	timeout time.Duration
}

// NewRefresher creates a new Refresher.
func NewRefresher(cfg *config.Config, news NewsService, log *logger.Logger) *Refresher {
	return &Refresher{
		cfg:     cfg,
		news:    news,
		logger:  log,
		cron:    cron.New(),
		timeout: 2 * time.Minute,
	}
}

// Start registers the refresh schedule and starts the cron loop.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.cfg.Refresher.Schedule, func() {
		r.refreshAll(ctx)
	})
	if err != nil {
		return err
	}

	r.cron.Start()
	r.logger.Info("Refresher started",
		logger.StringField("schedule", r.cfg.Refresher.Schedule),
		logger.IntField("symbol_sets", len(r.cfg.Refresher.SymbolSets)),
	)
	return nil
}

// Stop stops the cron loop, waiting for a running tick to finish.
func (r *Refresher) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.logger.Info("Refresher stopped")
}

func (r *Refresher) refreshAll(ctx context.Context) {
	for _, set := range r.cfg.Refresher.SymbolSets {
		if !utils.ShouldContinue(ctx, r.logger) {
			return
		}
		symbols := strings.Split(set, ",")

		tickCtx, cancel := context.WithTimeout(ctx, r.timeout)
		articles, err := r.news.RefreshNews(tickCtx, symbols)
		cancel()

		if errors.Is(err, ErrRateLimited) {
			continue
		}
		if err != nil {
			r.logger.Warn("Scheduled refresh failed",
				logger.StringField("symbols", set),
				logger.ErrorField(err),
			)
			continue
		}

		r.logger.Info("Scheduled refresh completed",
			logger.StringField("symbols", set),
			logger.IntField("count", len(articles)),
		)
	}
}
