// Package scraper pulls full article text for entries whose feed only
// carries a teaser. Best effort: any failure falls back to the feed text.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newspulse/internal/logger"
)

// selector cascade tried in order; the first one yielding enough paragraphs
// wins. Covers the common article markups.
var contentSelectors = []string{
	"article p",
	".article-body p",
	".article-content p",
	".post-content p",
	".entry-content p",
	".content p",
	"main p",
}

type Scraper struct {
	client *http.Client
}

func New(timeout time.Duration) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: timeout},
	}
}

// FullText fetches the page and extracts the body text.
func (s *Scraper) FullText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "newspulse/1.0 (+https://github.com/deusflow/newspulse)")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("load page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	content := extractContent(doc)
	if content == "" {
		return "", fmt.Errorf("no article content found")
	}
	return content, nil
}

// ExtractAll scrapes the given URLs with bounded concurrency and returns
// whatever succeeded, keyed by URL.
func (s *Scraper) ExtractAll(ctx context.Context, urls []string, concurrency int) map[string]string {
	if concurrency <= 0 {
		concurrency = 4
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(urls))
		sem     = make(chan struct{}, concurrency)
	)

	for _, url := range urls {
		wg.Add(1)
		sem <- struct{}{}
		go func(url string) {
			defer wg.Done()
			defer func() { <-sem }()

			text, err := s.FullText(ctx, url)
			if err != nil {
				logger.Debug("scrape failed", "url", url, "error", err)
				return
			}
			mu.Lock()
			results[url] = text
			mu.Unlock()
		}(url)
	}

	wg.Wait()
	return results
}

func extractContent(doc *goquery.Document) string {
	var paragraphs []string

	for _, selector := range contentSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			break
		}
		paragraphs = paragraphs[:0]
	}

	if len(paragraphs) == 0 {
		// Take whatever single paragraph the page has.
		doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
	}

	return cleanContent(strings.Join(paragraphs, "\n\n"))
}

func cleanContent(content string) string {
	content = strings.ReplaceAll(content, "\r", "")
	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(content)
}
