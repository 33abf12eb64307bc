package filter

import (
	"strings"

	"github.com/deusflow/newspulse/internal/article"
)

// Similarity returns a normalized score in [0,1] for two titles, computed as
// 2*LCS/(len(a)+len(b)) over lowercased runes. Identical strings score 1.0,
// an empty string against a non-empty one scores 0, and the metric is
// symmetric. This is the sequence-matching ratio the dedup threshold was
// tuned against.
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	matched := lcsLength(ra, rb)
	return 2 * float64(matched) / float64(len(ra)+len(rb))
}

// lcsLength computes the longest-common-subsequence length with two rolling
// rows, O(len(a)*len(b)) time and O(min) extra space.
func lcsLength(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// FindDuplicates scans every unordered pair (i,j), i<j, and returns the set
// of indices to drop as duplicates of an earlier article. The earliest-seen
// article of a cluster always survives. Rules, in order: exact URL match,
// then title similarity at or above the engine threshold. Pairs where either
// index is already marked are skipped, and articles with no URL or no title
// never match on the corresponding rule. The input is not reordered.
//
// The scan is O(n^2) string comparisons; batches are bounded upstream by the
// per-source fetch cap, which keeps this affordable.
func (e *Engine) FindDuplicates(articles []article.Article) map[int]struct{} {
	duplicates := make(map[int]struct{})

	for i := 0; i < len(articles); i++ {
		if _, dup := duplicates[i]; dup {
			continue
		}
		for j := i + 1; j < len(articles); j++ {
			if _, dup := duplicates[j]; dup {
				continue
			}

			if articles[i].URL != "" && articles[i].URL == articles[j].URL {
				duplicates[j] = struct{}{}
				continue
			}

			if articles[i].Title == "" && articles[j].Title == "" {
				continue
			}
			if Similarity(articles[i].Title, articles[j].Title) >= e.threshold {
				duplicates[j] = struct{}{}
			}
		}
	}

	return duplicates
}
