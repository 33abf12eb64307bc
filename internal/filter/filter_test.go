package filter

import (
	"strings"
	"testing"

	"github.com/deusflow/newspulse/internal/article"
)

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func longBody(seed string) string {
	return seed + " " + strings.Repeat("details of the announcement follow. ", 5)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"negative threshold", Config{SimilarityThreshold: -0.5}},
		{"threshold above one", Config{SimilarityThreshold: 1.5}},
		{"negative min length", Config{MinContentLength: -1}},
		{"invalid clickbait regex", Config{ClickbaitPatterns: []string{"["}}},
	}

	for _, tc := range cases {
		if _, err := NewEngine(tc.cfg); err == nil {
			t.Errorf("%s: expected construction error, got nil", tc.name)
		}
	}

	if _, err := NewEngine(Config{}); err != nil {
		t.Errorf("zero config should use defaults, got error: %v", err)
	}
}

func TestIsClickbaitCaseInsensitive(t *testing.T) {
	e := mustEngine(t, Config{})

	titles := []string{
		"You WON'T Believe What Happened to Tech Stocks Today!",
		"you won't believe what happened to tech stocks today!",
		"Number 7 Will Surprise You",
		"SHOCKING development in chip market",
	}
	for _, title := range titles {
		if !e.IsClickbait(title) {
			t.Errorf("IsClickbait(%q) = false, want true", title)
		}
	}

	for _, title := range []string{"", "Apple Announces New iPhone 15", "Quarterly results beat expectations"} {
		if e.IsClickbait(title) {
			t.Errorf("IsClickbait(%q) = true, want false", title)
		}
	}
}

func TestIsLowQualityLengthBoundary(t *testing.T) {
	e := mustEngine(t, Config{})

	short := article.Article{Title: "Brief note", Content: strings.Repeat("a", 99)}
	if !e.IsLowQuality(short) {
		t.Errorf("99-rune content with empty description should be low quality")
	}

	exact := article.Article{Title: "Brief note", Content: strings.Repeat("a", 100)}
	if e.IsLowQuality(exact) {
		t.Errorf("exactly 100 runes of content should not be low quality")
	}

	// A long description rescues short content.
	rescued := article.Article{Content: strings.Repeat("a", 10), Description: strings.Repeat("b", 150)}
	if e.IsLowQuality(rescued) {
		t.Errorf("long description should rescue short content")
	}
}

func TestIsLowQualityKeywords(t *testing.T) {
	e := mustEngine(t, Config{})

	a := article.Article{
		Title:   "Sponsored: Buy This Product Now",
		Content: longBody("This is a paid promotion for a product."),
	}
	if !e.IsLowQuality(a) {
		t.Errorf("sponsored article should be low quality regardless of length")
	}
}

func TestFilterDuplicateURL(t *testing.T) {
	e := mustEngine(t, Config{})

	batch := []article.Article{
		{URL: "https://example.com/a", Title: "Central bank holds rates steady", Content: longBody("rates")},
		{URL: "https://example.com/a", Title: "Totally different headline here", Content: longBody("same story")},
	}

	res := e.Filter(batch)
	if len(res.Kept) != 1 {
		t.Fatalf("kept %d articles, want 1", len(res.Kept))
	}
	if res.Kept[0].URL != "https://example.com/a" || res.Kept[0].Title != "Central bank holds rates steady" {
		t.Errorf("wrong survivor: %+v", res.Kept[0])
	}
	if len(res.Removed) != 1 || !res.Removed[0].IsDuplicate || !res.Removed[0].IsFiltered {
		t.Errorf("second article not flagged as duplicate: %+v", res.Removed)
	}
}

func TestFindDuplicatesTitleThreshold(t *testing.T) {
	titleA := "Apple Announces New iPhone 15"
	titleB := "Apple Announces New iPhone 15 Model"

	sim := Similarity(titleA, titleB)
	if sim < 0.75 {
		t.Fatalf("Similarity(%q, %q) = %v, expected >= 0.75", titleA, titleB, sim)
	}

	batch := []article.Article{
		{URL: "https://example.com/1", Title: titleA},
		{URL: "https://example.com/2", Title: titleB},
	}

	// At the default threshold the later article is caught.
	e := mustEngine(t, Config{})
	dups := e.FindDuplicates(batch)
	if _, ok := dups[1]; !ok || len(dups) != 1 {
		t.Errorf("default threshold: got duplicate set %v, want {1}", dups)
	}

	// Lowering the threshold below the actual similarity must still catch it.
	low := mustEngine(t, Config{SimilarityThreshold: 0.5})
	if dups := low.FindDuplicates(batch); len(dups) != 1 {
		t.Errorf("threshold 0.5: got duplicate set %v, want one entry", dups)
	}

	// Raising it above must not.
	high := mustEngine(t, Config{SimilarityThreshold: 0.99})
	if dups := high.FindDuplicates(batch); len(dups) != 0 {
		t.Errorf("threshold 0.99: got duplicate set %v, want empty", dups)
	}
}

func TestFindDuplicatesKeepsLowestIndexOfCluster(t *testing.T) {
	e := mustEngine(t, Config{})

	batch := []article.Article{
		{URL: "https://example.com/1", Title: "Apple Announces New iPhone 15"},
		{URL: "https://example.com/2", Title: "Apple Announces New iPhone 15 Model"},
		{URL: "https://example.com/3", Title: "Apple Announces New iPhone 15 Today"},
	}

	dups := e.FindDuplicates(batch)
	if _, ok := dups[0]; ok {
		t.Errorf("lowest index must survive, got %v", dups)
	}
	if len(dups) != 2 {
		t.Errorf("want indices 1 and 2 marked, got %v", dups)
	}
}

func TestFindDuplicatesEmptyFieldsDegrade(t *testing.T) {
	e := mustEngine(t, Config{})

	// Two malformed records with no URL and no title must not alias.
	batch := []article.Article{{}, {}}
	if dups := e.FindDuplicates(batch); len(dups) != 0 {
		t.Errorf("empty articles marked duplicates: %v", dups)
	}
}

func TestFilterIdempotent(t *testing.T) {
	e := mustEngine(t, Config{})

	batch := []article.Article{
		{URL: "https://example.com/1", Title: "Apple Announces New iPhone 15", Content: longBody("apple")},
		{URL: "https://example.com/2", Title: "Apple Announces New iPhone 15 Model", Content: longBody("apple again")},
		{URL: "https://example.com/3", Title: "EU approves new data regulation", Content: longBody("brussels")},
	}

	first := e.Filter(batch)
	second := e.Filter(first.Kept)

	if len(second.Removed) != 0 {
		t.Errorf("second pass removed %d articles from its own output", len(second.Removed))
	}
	if len(second.Kept) != len(first.Kept) {
		t.Errorf("second pass kept %d, want %d", len(second.Kept), len(first.Kept))
	}
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	e := mustEngine(t, Config{})

	batch := []article.Article{
		{URL: "https://example.com/1", Title: "You won't believe this chart"},
	}
	e.Filter(batch)

	if batch[0].IsFiltered || batch[0].FilterReason != "" {
		t.Errorf("input batch was mutated: %+v", batch[0])
	}
}

func TestFilterClickbaitWinsOverLowQuality(t *testing.T) {
	e := mustEngine(t, Config{})

	// Clickbait title and sponsored short body: reason must be clickbait.
	batch := []article.Article{
		{URL: "https://example.com/1", Title: "You won't believe this sponsored deal", Content: "sponsored"},
	}
	res := e.Filter(batch)
	if len(res.Removed) != 1 || res.Removed[0].FilterReason != article.ReasonClickbait {
		t.Errorf("got %+v, want clickbait reason", res.Removed)
	}
}

func TestFilterEndToEnd(t *testing.T) {
	e := mustEngine(t, Config{})

	batch := []article.Article{
		{
			URL:     "https://example.com/1",
			Title:   "You Won't Believe What Happened to Tech Stocks Today!",
			Content: longBody("something amazing happened"),
		},
		{
			URL:     "https://example.com/2",
			Title:   "Apple Announces New iPhone 15",
			Content: longBody("Apple has announced the new iPhone 15 with improved camera and battery life."),
		},
		{
			URL:     "https://example.com/3",
			Title:   "Apple Announces New iPhone 15 Model",
			Content: longBody("In a major announcement, Apple unveiled the iPhone 15 with enhanced features."),
		},
		{
			URL:     "https://example.com/4",
			Title:   "Sponsored: Buy This Product Now",
			Content: "This is a paid advertisement for a product.",
		},
	}

	res := e.Filter(batch)

	if len(res.Kept) != 1 {
		t.Fatalf("kept %d articles, want 1", len(res.Kept))
	}
	if res.Kept[0].URL != "https://example.com/2" {
		t.Errorf("survivor is %s, want the first iPhone announcement", res.Kept[0].URL)
	}

	reasons := map[string]article.Article{}
	for _, r := range res.Removed {
		reasons[r.URL] = r
	}
	if a := reasons["https://example.com/1"]; a.FilterReason != article.ReasonClickbait {
		t.Errorf("article 1 reason = %q, want clickbait", a.FilterReason)
	}
	if a := reasons["https://example.com/3"]; !a.IsDuplicate {
		t.Errorf("article 3 should be flagged duplicate: %+v", a)
	}
	if a := reasons["https://example.com/4"]; a.FilterReason != article.ReasonLowQuality {
		t.Errorf("article 4 reason = %q, want low_quality", a.FilterReason)
	}
}

func TestCustomPatternSets(t *testing.T) {
	e := mustEngine(t, Config{
		ClickbaitPatterns:  []string{`totally clickbait`},
		LowQualityKeywords: []string{"advertorial"},
	})

	if e.IsClickbait("You won't believe this") {
		t.Errorf("default patterns should be replaced by custom set")
	}
	if !e.IsClickbait("This is TOTALLY Clickbait") {
		t.Errorf("custom pattern did not match")
	}
	if !e.IsLowQuality(article.Article{Content: longBody("an advertorial piece")}) {
		t.Errorf("custom keyword did not match")
	}
}
