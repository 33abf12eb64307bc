package filter

import (
	"testing"

	"github.com/deusflow/newspulse/internal/article"
)

func TestRankDescendingStable(t *testing.T) {
	in := []article.Article{
		{URL: "1", RelevanceScore: 80},
		{URL: "2", RelevanceScore: 80},
		{URL: "3", RelevanceScore: 90},
	}

	out := Rank(in)

	want := []string{"3", "1", "2"}
	for i, url := range want {
		if out[i].URL != url {
			t.Fatalf("position %d: got %s, want %s (full order %v)", i, out[i].URL, url, urls(out))
		}
	}

	// Input order must be preserved.
	if in[0].URL != "1" || in[1].URL != "2" || in[2].URL != "3" {
		t.Errorf("Rank mutated its input: %v", urls(in))
	}
}

func TestRankDefaultScores(t *testing.T) {
	// Unsummarized articles carry the ingestion default and tie stably.
	in := []article.Article{
		{URL: "a", RelevanceScore: article.DefaultRelevance},
		{URL: "b", RelevanceScore: 95},
		{URL: "c", RelevanceScore: article.DefaultRelevance},
	}

	out := Rank(in)
	if out[0].URL != "b" || out[1].URL != "a" || out[2].URL != "c" {
		t.Errorf("got order %v, want [b a c]", urls(out))
	}
}

func TestRankEmpty(t *testing.T) {
	if out := Rank(nil); len(out) != 0 {
		t.Errorf("Rank(nil) returned %d articles", len(out))
	}
}

func urls(articles []article.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.URL
	}
	return out
}
