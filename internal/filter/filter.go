// Package filter decides which fetched articles are clickbait, low quality,
// or near-duplicates of one another, and ranks the survivors by relevance.
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/newspulse/internal/article"
)

// Defaults used when config leaves the knobs unset.
const (
	DefaultSimilarityThreshold = 0.75
	DefaultMinContentLength    = 100
)

// DefaultClickbaitPatterns are matched case-insensitively against titles only.
var DefaultClickbaitPatterns = []string{
	`you won't believe`,
	`shocking`,
	`this one trick`,
	`number \d+ will`,
	`what happens next`,
	`doctors hate`,
	`click here`,
	`this is why`,
	`the reason is`,
}

// DefaultLowQualityKeywords mark sponsored or advertorial content.
var DefaultLowQualityKeywords = []string{
	"sponsored",
	"advertisement",
	"paid promotion",
}

// Config carries the tunable parts of the engine. Zero values fall back to
// the defaults above; invalid values are rejected by NewEngine.
type Config struct {
	SimilarityThreshold float64
	MinContentLength    int
	ClickbaitPatterns   []string
	LowQualityKeywords  []string
}

// Engine applies the quality predicates and the duplicate scan to one batch.
// It is read-only after construction and safe for concurrent batches.
type Engine struct {
	threshold  float64
	minContent int
	clickbait  []*regexp.Regexp
	lowQuality []string
}

// NewEngine validates the config and compiles the clickbait patterns.
// Threshold and length errors are rejected here rather than clamped: both
// materially change what gets dropped, so a bad value should be loud.
func NewEngine(cfg Config) (*Engine, error) {
	threshold := cfg.SimilarityThreshold
	if threshold == 0 {
		threshold = DefaultSimilarityThreshold
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("similarity threshold %v outside (0,1]", threshold)
	}

	minContent := cfg.MinContentLength
	if minContent == 0 {
		minContent = DefaultMinContentLength
	}
	if minContent < 0 {
		return nil, fmt.Errorf("min content length %d is negative", minContent)
	}

	patterns := cfg.ClickbaitPatterns
	if patterns == nil {
		patterns = DefaultClickbaitPatterns
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("clickbait pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	keywords := cfg.LowQualityKeywords
	if keywords == nil {
		keywords = DefaultLowQualityKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		lowered = append(lowered, strings.ToLower(k))
	}

	return &Engine{
		threshold:  threshold,
		minContent: minContent,
		clickbait:  compiled,
		lowQuality: lowered,
	}, nil
}

// IsClickbait reports whether the title matches any clickbait pattern.
// An empty title never matches.
func (e *Engine) IsClickbait(title string) bool {
	if title == "" {
		return false
	}
	for _, re := range e.clickbait {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// IsLowQuality reports whether the article is sponsored/advertorial or has
// too little substantive text to summarize. Lengths are counted in runes and
// the floor is strict: exactly minContent characters is enough.
func (e *Engine) IsLowQuality(a article.Article) bool {
	combined := strings.ToLower(a.Title + " " + a.Content + " " + a.Description)
	for _, k := range e.lowQuality {
		if strings.Contains(combined, k) {
			return true
		}
	}
	return utf8.RuneCountInString(a.Content) < e.minContent &&
		utf8.RuneCountInString(a.Description) < e.minContent
}

// Result splits one batch into the kept list and the audit trail of removed
// articles. Removed entries carry their filter-state flags; callers decide
// whether to persist them.
type Result struct {
	Kept    []article.Article
	Removed []article.Article
}

// Filter runs the two-pass pipeline over a batch: quality first, then the
// duplicate scan over the quality survivors. The input slice is not mutated;
// annotated copies are returned. Clickbait is checked before low quality, so
// an article that is both gets tagged clickbait.
func (e *Engine) Filter(batch []article.Article) Result {
	kept := make([]article.Article, 0, len(batch))
	var removed []article.Article

	for _, a := range batch {
		switch {
		case e.IsClickbait(a.Title):
			a.IsFiltered = true
			a.FilterReason = article.ReasonClickbait
			removed = append(removed, a)
		case e.IsLowQuality(a):
			a.IsFiltered = true
			a.FilterReason = article.ReasonLowQuality
			removed = append(removed, a)
		default:
			kept = append(kept, a)
		}
	}

	duplicates := e.FindDuplicates(kept)

	final := make([]article.Article, 0, len(kept))
	for i, a := range kept {
		if _, dup := duplicates[i]; dup {
			a.IsFiltered = true
			a.IsDuplicate = true
			removed = append(removed, a)
			continue
		}
		final = append(final, a)
	}

	return Result{Kept: final, Removed: removed}
}
