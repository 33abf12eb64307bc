package filter

import (
	"sort"

	"github.com/deusflow/newspulse/internal/article"
)

// Rank returns the articles sorted by relevance score, highest first. The
// sort is stable: articles with equal scores keep their input order. The
// input slice is left untouched. Unsummarized articles carry the neutral
// default score stamped at ingestion, so they need no special casing here.
func Rank(articles []article.Article) []article.Article {
	ranked := make([]article.Article, len(articles))
	copy(ranked, articles)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	return ranked
}
