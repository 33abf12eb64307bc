package summarize

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/deusflow/newspulse/internal/article"
	"github.com/deusflow/newspulse/internal/cache"
	"github.com/deusflow/newspulse/internal/ratelimit"
)

type fakeAnnotator struct {
	id    string
	ann   *Annotation
	err   error
	calls int
}

func (f *fakeAnnotator) name() string { return f.id }

func (f *fakeAnnotator) annotate(_ context.Context, _, _, _ string) (*Annotation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.ann, nil
}

func TestParseAnnotation(t *testing.T) {
	resp := `Here is the analysis you asked for:
{
  "summary": "Apple launched the iPhone 15.",
  "key_points": ["New A17 chip", "Better camera"],
  "subtopic": "Consumer Hardware",
  "relevance_score": 85
}
Hope this helps!`

	ann, err := parseAnnotation(resp)
	if err != nil {
		t.Fatalf("parseAnnotation: %v", err)
	}
	if ann.Summary != "Apple launched the iPhone 15." {
		t.Errorf("summary = %q", ann.Summary)
	}
	if len(ann.KeyPoints) != 2 || ann.KeyPoints[0] != "New A17 chip" {
		t.Errorf("key points = %v", ann.KeyPoints)
	}
	if ann.Subtopic != "Consumer Hardware" || ann.RelevanceScore != 85 {
		t.Errorf("subtopic/score = %q/%d", ann.Subtopic, ann.RelevanceScore)
	}
}

func TestParseAnnotationClampsScore(t *testing.T) {
	ann, err := parseAnnotation(`{"summary": "s", "relevance_score": 150}`)
	if err != nil {
		t.Fatalf("parseAnnotation: %v", err)
	}
	if ann.RelevanceScore != 100 {
		t.Errorf("score = %d, want clamped 100", ann.RelevanceScore)
	}

	ann, err = parseAnnotation(`{"summary": "s", "relevance_score": -5}`)
	if err != nil {
		t.Fatalf("parseAnnotation: %v", err)
	}
	if ann.RelevanceScore != 0 {
		t.Errorf("score = %d, want clamped 0", ann.RelevanceScore)
	}
}

func TestParseAnnotationDefaults(t *testing.T) {
	// Missing score falls back to the neutral default; an explicit zero is
	// honored.
	ann, err := parseAnnotation(`{"summary": "s"}`)
	if err != nil {
		t.Fatalf("parseAnnotation: %v", err)
	}
	if ann.RelevanceScore != article.DefaultRelevance {
		t.Errorf("missing score = %d, want %d", ann.RelevanceScore, article.DefaultRelevance)
	}

	ann, err = parseAnnotation(`{"summary": "s", "relevance_score": 0}`)
	if err != nil {
		t.Fatalf("parseAnnotation: %v", err)
	}
	if ann.RelevanceScore != 0 {
		t.Errorf("explicit zero score = %d, want 0", ann.RelevanceScore)
	}
}

func TestParseAnnotationErrors(t *testing.T) {
	if _, err := parseAnnotation("no json here"); err == nil {
		t.Errorf("expected error for response without JSON")
	}
	if _, err := parseAnnotation(`{"key_points": []}`); err == nil {
		t.Errorf("expected error for missing summary")
	}
	if _, err := parseAnnotation(`{broken`); err == nil {
		t.Errorf("expected error for malformed JSON")
	}
}

func TestTruncateContent(t *testing.T) {
	long := strings.Repeat("One full sentence here. ", 400)
	got := truncateContent(long, maxPromptRunes)
	if utf8.RuneCountInString(got) > maxPromptRunes+3 {
		t.Errorf("truncated content still %d runes", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated content should end with ellipsis: %q", got[len(got)-20:])
	}

	short := "Short content."
	if truncateContent(short, maxPromptRunes) != short {
		t.Errorf("short content should pass through")
	}
}

func longText() string {
	return strings.Repeat("A substantial article body sentence. ", 5)
}

func TestAnnotateBatchShortContentSentinel(t *testing.T) {
	provider := &fakeAnnotator{id: "fake", ann: &Annotation{Summary: "unused", RelevanceScore: 90}}
	s := &Service{gemini: provider, budget: ratelimit.NewBudget(0, 0, 0)}

	out := s.AnnotateBatch(context.Background(), []article.Article{
		{Title: "Tiny teaser", Content: "too short"},
	}, 10)

	if provider.calls != 0 {
		t.Errorf("provider called %d times for short content", provider.calls)
	}
	if out[0].Summary != "Tiny teaser" || out[0].RelevanceScore != article.ShortContentRelevance {
		t.Errorf("sentinel annotation wrong: %+v", out[0])
	}
}

func TestAnnotateBatchDegradesOnFailure(t *testing.T) {
	provider := &fakeAnnotator{id: "fake", err: fmt.Errorf("service unavailable")}
	s := &Service{gemini: provider, budget: ratelimit.NewBudget(0, 0, 0)}

	in := []article.Article{
		{Title: "Story", Content: longText(), RelevanceScore: article.DefaultRelevance},
	}
	out := s.AnnotateBatch(context.Background(), in, 10)

	if out[0].Summary != "" {
		t.Errorf("failed annotation should leave article unsummarized: %+v", out[0])
	}
	if out[0].RelevanceScore != article.DefaultRelevance {
		t.Errorf("failed annotation should keep the default score, got %d", out[0].RelevanceScore)
	}
}

func TestAnnotateBatchFallsBackToSecondProvider(t *testing.T) {
	primary := &fakeAnnotator{id: "gemini", err: fmt.Errorf("quota")}
	fallback := &fakeAnnotator{id: "openai", ann: &Annotation{Summary: "from fallback", RelevanceScore: 70}}
	s := &Service{gemini: primary, openai: fallback, budget: ratelimit.NewBudget(0, 0, 0)}

	out := s.AnnotateBatch(context.Background(), []article.Article{
		{Title: "Story", Content: longText()},
	}, 10)

	if primary.calls != 1 || fallback.calls != 1 {
		t.Errorf("calls: primary=%d fallback=%d, want 1/1", primary.calls, fallback.calls)
	}
	if out[0].Summary != "from fallback" || out[0].RelevanceScore != 70 {
		t.Errorf("fallback annotation not applied: %+v", out[0])
	}
}

func TestAnnotateBatchRespectsBudget(t *testing.T) {
	provider := &fakeAnnotator{id: "gemini", ann: &Annotation{Summary: "s", RelevanceScore: 60}}
	s := &Service{gemini: provider, budget: ratelimit.NewBudget(1, 0, 1)}

	in := []article.Article{
		{Title: "First", Content: longText()},
		{Title: "Second", Content: longText()},
	}
	out := s.AnnotateBatch(context.Background(), in, 10)

	if provider.calls != 1 {
		t.Errorf("provider called %d times, budget allows 1", provider.calls)
	}
	if out[0].Summary == "" || out[1].Summary != "" {
		t.Errorf("budget should annotate only the first article: %+v", out)
	}
}

func TestAnnotateBatchUsesCache(t *testing.T) {
	provider := &fakeAnnotator{id: "gemini", ann: &Annotation{Summary: "cached once", RelevanceScore: 60}}
	s := &Service{gemini: provider, budget: ratelimit.NewBudget(0, 0, 0), cache: cache.New()}

	a := article.Article{Title: "Same story", Content: longText()}
	s.AnnotateBatch(context.Background(), []article.Article{a}, 10)
	out := s.AnnotateBatch(context.Background(), []article.Article{a}, 10)

	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1 (second served from cache)", provider.calls)
	}
	if out[0].Summary != "cached once" {
		t.Errorf("cached annotation not applied: %+v", out[0])
	}
}

func TestAnnotateBatchDisabledPassthrough(t *testing.T) {
	s := &Service{budget: ratelimit.NewBudget(0, 0, 0)}

	in := []article.Article{{Title: "Story", Content: longText(), RelevanceScore: article.DefaultRelevance}}
	out := s.AnnotateBatch(context.Background(), in, 10)

	if out[0].Summary != "" || out[0].RelevanceScore != article.DefaultRelevance {
		t.Errorf("disabled service must pass articles through: %+v", out[0])
	}
}
