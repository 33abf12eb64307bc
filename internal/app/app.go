// Package app wires the pipeline together and runs one digest cycle:
// fetch, filter, scrape, summarize, rank, store, send.
package app

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/deusflow/newspulse/internal/article"
	"github.com/deusflow/newspulse/internal/cache"
	"github.com/deusflow/newspulse/internal/config"
	"github.com/deusflow/newspulse/internal/feed"
	"github.com/deusflow/newspulse/internal/filter"
	"github.com/deusflow/newspulse/internal/logger"
	"github.com/deusflow/newspulse/internal/metrics"
	"github.com/deusflow/newspulse/internal/notify"
	"github.com/deusflow/newspulse/internal/ratelimit"
	"github.com/deusflow/newspulse/internal/retry"
	"github.com/deusflow/newspulse/internal/scraper"
	"github.com/deusflow/newspulse/internal/storage"
	"github.com/deusflow/newspulse/internal/summarize"
)

// Ledger remembers which stories already went out, so overlapping runs do not
// repeat them. Backed by Postgres when DATABASE_URL is set, a JSON file
// otherwise.
type Ledger interface {
	WasSent(ctx context.Context, hash string) (bool, error)
	MarkSent(ctx context.Context, hash, title, link string) error
	Cleanup(ctx context.Context) error
}

type App struct {
	cfg *config.Config

	fetcher    *feed.Fetcher
	scraper    *scraper.Scraper
	summarizer *summarize.Service
	budget     *ratelimit.Budget
	telegram   *notify.Telegram
	store      *storage.Store // nil without DATABASE_URL
	ledger     Ledger
}

// New builds the app from config. The database is optional; the summarizer is
// optional; Telegram is not.
func New(cfg *config.Config) (*App, error) {
	retryCfg := retry.Config{
		MaxAttempts: cfg.RetryAttempts,
		Delay:       cfg.RetryDelay,
		Backoff:     true,
	}

	a := &App{
		cfg:      cfg,
		fetcher:  feed.NewFetcher(cfg.MaxPerSource),
		scraper:  scraper.New(cfg.RequestTimeout),
		telegram: notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.RequestTimeout, retryCfg),
	}

	if cfg.DatabaseURL != "" {
		store, err := storage.New(cfg.DatabaseURL, cfg.LedgerTTL)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		a.store = store
		a.ledger = store
	} else {
		ledger, err := storage.NewFileLedger(cfg.LedgerFilePath, cfg.LedgerTTL)
		if err != nil {
			return nil, fmt.Errorf("file ledger: %w", err)
		}
		a.ledger = ledger
		logger.Info("no DATABASE_URL, using file ledger", "path", cfg.LedgerFilePath)
	}

	a.budget = ratelimit.NewBudget(cfg.MaxSummarize, cfg.MaxSummarize, 2*cfg.MaxSummarize)
	summarizer, err := summarize.NewService(cfg.GeminiAPIKey, cfg.OpenAIAPIKey, a.budget, cache.New())
	if err != nil {
		return nil, fmt.Errorf("summarizer: %w", err)
	}
	a.summarizer = summarizer

	return a, nil
}

func (a *App) Close() {
	a.summarizer.Close()
	if a.store != nil {
		a.store.Close()
	}
}

// Run executes one full digest cycle.
func (a *App) Run(ctx context.Context) error {
	start := time.Now()

	feeds, err := feed.LoadFile(a.cfg.FeedsConfigPath)
	if err != nil {
		return err
	}

	engine, err := filter.NewEngine(a.filterConfig(feeds.Filter))
	if err != nil {
		return fmt.Errorf("filter engine: %w", err)
	}

	batch := a.fetcher.FetchAll(ctx, feeds.Sources)
	metrics.Global.AddFetched(len(batch))
	if len(batch) == 0 {
		return fmt.Errorf("no articles fetched from %d sources", len(feeds.Sources))
	}

	batch = dropStale(batch, a.cfg.MaxArticleAge)

	result := engine.Filter(batch)
	recordFilterMetrics(result)
	logger.Info("batch filtered",
		"in", len(batch), "kept", len(result.Kept), "removed", len(result.Removed))

	kept := a.scrapeShort(ctx, result.Kept)

	ranked := filter.Rank(kept)
	ranked = a.summarizer.AnnotateBatch(ctx, ranked, a.cfg.MaxSummarize)
	// Summaries can move scores, so rank again before the cut.
	ranked = filter.Rank(ranked)

	if a.store != nil {
		all := append(append([]article.Article{}, ranked...), result.Removed...)
		if err := a.store.SaveArticles(ctx, all); err != nil {
			logger.Error("saving articles failed", "error", err)
		} else {
			metrics.Global.AddStored(len(all))
		}
	}

	if err := a.ledger.Cleanup(ctx); err != nil {
		logger.Warn("ledger cleanup failed", "error", err)
	}

	digest, err := a.selectUnsent(ctx, ranked)
	if err != nil {
		return err
	}
	if len(digest) == 0 {
		logger.Info("nothing new to send")
		a.finishRun(start)
		return nil
	}

	text := notify.FormatDigest(digest, time.Now())
	if err := a.telegram.SendDigest(ctx, text); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	metrics.Global.IncrementDigestsSent()

	for _, d := range digest {
		hash := storage.GenerateNewsHash(d.Title, d.URL)
		if err := a.ledger.MarkSent(ctx, hash, d.Title, d.URL); err != nil {
			logger.Warn("marking sent failed", "title", d.Title, "error", err)
		}
	}

	logger.Info("digest sent", "stories", len(digest))
	a.finishRun(start)
	return nil
}

// filterConfig merges env settings with the per-file overrides; the feeds
// file wins where it sets a value.
func (a *App) filterConfig(o feed.FilterOverrides) filter.Config {
	cfg := filter.Config{
		SimilarityThreshold: a.cfg.SimilarityThreshold,
		MinContentLength:    a.cfg.MinContentLength,
	}
	if o.SimilarityThreshold != 0 {
		cfg.SimilarityThreshold = o.SimilarityThreshold
	}
	if o.MinContentLength != 0 {
		cfg.MinContentLength = o.MinContentLength
	}
	if o.ClickbaitPatterns != nil {
		cfg.ClickbaitPatterns = o.ClickbaitPatterns
	}
	if o.LowQualityKeywords != nil {
		cfg.LowQualityKeywords = o.LowQualityKeywords
	}
	return cfg
}

// dropStale removes articles older than the age window. Articles without a
// publish date pass through: feeds that omit dates should not go dark.
func dropStale(batch []article.Article, maxAge time.Duration) []article.Article {
	if maxAge <= 0 {
		return batch
	}

	cutoff := time.Now().Add(-maxAge)
	fresh := make([]article.Article, 0, len(batch))
	for _, a := range batch {
		if !a.PublishedDate.IsZero() && a.PublishedDate.Before(cutoff) {
			continue
		}
		fresh = append(fresh, a)
	}

	if dropped := len(batch) - len(fresh); dropped > 0 {
		logger.Debug("dropped stale articles", "count", dropped)
	}
	return fresh
}

// scrapeShort fetches full text for kept articles whose feed text is too thin
// to summarize well. Failures keep the feed text.
func (a *App) scrapeShort(ctx context.Context, kept []article.Article) []article.Article {
	var urls []string
	for _, k := range kept {
		if utf8.RuneCountInString(k.Text()) < a.cfg.ScrapeThreshold {
			urls = append(urls, k.URL)
		}
	}
	if len(urls) == 0 {
		return kept
	}

	logger.Info("scraping full text", "articles", len(urls))
	texts := a.scraper.ExtractAll(ctx, urls, 4)

	out := make([]article.Article, len(kept))
	copy(out, kept)
	for i := range out {
		if text, ok := texts[out[i].URL]; ok && text != "" {
			out[i].Content = text
		}
	}
	return out
}

// selectUnsent keeps the highest-ranked stories the ledger has not seen,
// up to the digest limit.
func (a *App) selectUnsent(ctx context.Context, ranked []article.Article) ([]article.Article, error) {
	digest := make([]article.Article, 0, a.cfg.DigestLimit)

	for _, r := range ranked {
		if len(digest) >= a.cfg.DigestLimit {
			break
		}

		hash := storage.GenerateNewsHash(r.Title, r.URL)
		sent, err := a.ledger.WasSent(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("ledger lookup: %w", err)
		}
		if sent {
			logger.Debug("already sent, skipping", "title", r.Title)
			continue
		}
		digest = append(digest, r)
	}

	return digest, nil
}

func recordFilterMetrics(result filter.Result) {
	var clickbait, lowQuality, duplicates int
	for _, r := range result.Removed {
		switch {
		case r.IsDuplicate:
			duplicates++
		case r.FilterReason == article.ReasonClickbait:
			clickbait++
		case r.FilterReason == article.ReasonLowQuality:
			lowQuality++
		}
	}
	metrics.Global.AddClickbait(clickbait)
	metrics.Global.AddLowQuality(lowQuality)
	metrics.Global.AddDuplicates(duplicates)
}

func (a *App) finishRun(start time.Time) {
	a.budget.LogStats()
	metrics.Global.RecordRunDuration(time.Since(start))
	metrics.Global.SetLastRun()
	logger.Info("run finished", "duration", time.Since(start).Round(time.Millisecond))
}
