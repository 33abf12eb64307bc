// Package article defines the record that flows through the whole pipeline:
// fetched from RSS, annotated by the filter and the summarizer, persisted,
// and finally rendered into the digest.
package article

import "time"

// Relevance sentinels. Fetched articles start at DefaultRelevance until the
// summarizer assigns a real score; articles with too little text to summarize
// get ShortContentRelevance instead of an API call.
const (
	DefaultRelevance      = 50
	ShortContentRelevance = 30
)

// FilterReason tags why the quality pass removed an article.
type FilterReason string

const (
	ReasonClickbait  FilterReason = "clickbait"
	ReasonLowQuality FilterReason = "low_quality"
)

// Article is the unit of work. URL is the natural key everywhere: the
// similarity engine, the store upsert, and the sent ledger all treat two
// records with the same URL as the same real-world item.
type Article struct {
	URL         string
	Title       string
	Description string
	Content     string
	Author      string
	Source      string
	Category    string
	Subtopic    string

	Summary        string
	KeyPoints      []string
	RelevanceScore int

	IsFiltered   bool
	FilterReason FilterReason
	IsDuplicate  bool

	PublishedDate time.Time // zero when the feed gave neither published nor updated
	FetchedDate   time.Time
}

// Text returns the best available body text: content when present, otherwise
// the feed description.
func (a Article) Text() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Description
}

// ClampScore forces a collaborator-supplied relevance score into [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
