// Package feed loads the configured RSS sources and turns feed entries into
// article records for the pipeline.
package feed

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/deusflow/newspulse/internal/article"
	"github.com/deusflow/newspulse/internal/logger"
)

// Source is one RSS feed to pull from.
type Source struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
}

// FilterOverrides lets the feeds file retune the filter without a rebuild,
// e.g. localized clickbait phrases. Zero values mean "use the defaults".
type FilterOverrides struct {
	SimilarityThreshold float64  `yaml:"similarity_threshold"`
	MinContentLength    int      `yaml:"min_content_length"`
	ClickbaitPatterns   []string `yaml:"clickbait_patterns"`
	LowQualityKeywords  []string `yaml:"low_quality_keywords"`
}

// File is the YAML structure of configs/feeds.yaml.
type File struct {
	Sources []Source        `yaml:"sources"`
	Filter  FilterOverrides `yaml:"filter"`
}

// LoadFile reads and parses the feeds config.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feeds config: %w", err)
	}
	defer f.Close()

	var cfg File
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse feeds config %s: %w", path, err)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("feeds config %s lists no sources", path)
	}
	return &cfg, nil
}

// Fetcher downloads and parses the configured feeds.
type Fetcher struct {
	parser       *gofeed.Parser
	maxPerSource int
}

// NewFetcher caps how many entries each source may contribute to a batch.
// The cap also bounds the O(n^2) duplicate scan downstream.
func NewFetcher(maxPerSource int) *Fetcher {
	return &Fetcher{
		parser:       gofeed.NewParser(),
		maxPerSource: maxPerSource,
	}
}

// FetchAll pulls every source and returns one combined batch. A failing feed
// is logged and skipped; it never fails the run.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) []article.Article {
	var batch []article.Article
	ok := 0

	for _, src := range sources {
		articles, err := f.fetchSource(ctx, src)
		if err != nil {
			logger.Warn("feed fetch failed", "source", src.Name, "url", src.URL, "error", err)
			continue
		}
		batch = append(batch, articles...)
		ok++
		logger.Info("feed fetched", "source", src.Name, "articles", len(articles))
	}

	logger.Info("feeds processed", "ok", ok, "total", len(sources), "articles", len(batch))
	return batch
}

func (f *Fetcher) fetchSource(ctx context.Context, src Source) ([]article.Article, error) {
	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, err
	}

	items := parsed.Items
	if f.maxPerSource > 0 && len(items) > f.maxPerSource {
		items = items[:f.maxPerSource]
	}

	return articlesFromItems(items, src, time.Now()), nil
}

// articlesFromItems maps feed entries to article records. Entries without a
// link are dropped here: a resolvable URL is the natural key everything
// downstream relies on.
func articlesFromItems(items []*gofeed.Item, src Source, fetched time.Time) []article.Article {
	out := make([]article.Article, 0, len(items))

	for _, item := range items {
		if item == nil || item.Link == "" {
			continue
		}

		a := article.Article{
			URL:            item.Link,
			Title:          item.Title,
			Description:    item.Description,
			Content:        item.Content,
			Source:         src.Name,
			Category:       src.Category,
			RelevanceScore: article.DefaultRelevance,
			FetchedDate:    fetched,
		}

		if a.Content == "" {
			a.Content = item.Description
		}

		if item.PublishedParsed != nil {
			a.PublishedDate = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			a.PublishedDate = *item.UpdatedParsed
		}

		if len(item.Authors) > 0 && item.Authors[0] != nil {
			a.Author = item.Authors[0].Name
		}

		out = append(out, a)
	}

	return out
}
