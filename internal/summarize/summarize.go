// Package summarize annotates kept articles with an AI-generated summary,
// key points, subtopic and relevance score. Gemini is the primary provider
// with OpenAI as an optional fallback; every failure degrades to the
// unsummarized article, never to a failed batch.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/newspulse/internal/article"
	"github.com/deusflow/newspulse/internal/cache"
	"github.com/deusflow/newspulse/internal/logger"
	"github.com/deusflow/newspulse/internal/metrics"
	"github.com/deusflow/newspulse/internal/ratelimit"
)

// Annotation is what a provider returns for one article.
type Annotation struct {
	Summary        string
	KeyPoints      []string
	Subtopic       string
	RelevanceScore int
}

// annotator is the per-provider contract.
type annotator interface {
	name() string
	annotate(ctx context.Context, title, content, category string) (*Annotation, error)
}

const (
	// Below this many runes of text there is nothing to summarize; the
	// article gets a sentinel annotation without spending an API request.
	minAnnotateRunes = 50

	// Prompt content budget.
	maxPromptRunes = 3000

	cacheTTL = 24 * time.Hour
)

type Service struct {
	gemini annotator // nil when GEMINI_API_KEY is unset
	openai annotator // nil when OPENAI_API_KEY is unset
	budget *ratelimit.Budget
	cache  *cache.Cache
}

// NewService wires the configured providers. Both keys empty yields a
// disabled service: AnnotateBatch then passes articles through untouched.
func NewService(geminiKey, openaiKey string, budget *ratelimit.Budget, c *cache.Cache) (*Service, error) {
	s := &Service{budget: budget, cache: c}

	if geminiKey != "" {
		g, err := newGeminiClient(geminiKey)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		s.gemini = g
	}
	if openaiKey != "" {
		s.openai = newOpenAIClient(openaiKey)
	}

	return s, nil
}

// Enabled reports whether any provider is configured.
func (s *Service) Enabled() bool {
	return s.gemini != nil || s.openai != nil
}

// Close releases provider resources.
func (s *Service) Close() {
	if g, ok := s.gemini.(*geminiClient); ok {
		g.close()
	}
}

// AnnotateBatch enriches up to max articles from the front of the ranked
// batch and returns annotated copies alongside the untouched remainder, in
// the original order. Provider errors degrade per article.
func (s *Service) AnnotateBatch(ctx context.Context, articles []article.Article, max int) []article.Article {
	out := make([]article.Article, len(articles))
	copy(out, articles)

	if !s.Enabled() || max <= 0 {
		return out
	}

	limit := max
	if limit > len(out) {
		limit = len(out)
	}

	for i := 0; i < limit; i++ {
		ann, err := s.annotateOne(ctx, out[i])
		if err != nil {
			logger.Warn("summarize failed, keeping article unsummarized",
				"title", out[i].Title, "error", err)
			metrics.Global.IncrementSummarizeFailures()
			continue
		}

		out[i].Summary = ann.Summary
		out[i].KeyPoints = ann.KeyPoints
		out[i].Subtopic = ann.Subtopic
		out[i].RelevanceScore = article.ClampScore(ann.RelevanceScore)
		metrics.Global.IncrementSummarized()
	}

	return out
}

func (s *Service) annotateOne(ctx context.Context, a article.Article) (*Annotation, error) {
	text := a.Text()

	if utf8.RuneCountInString(text) < minAnnotateRunes {
		return &Annotation{
			Summary:        a.Title,
			RelevanceScore: article.ShortContentRelevance,
		}, nil
	}

	key := cache.Key(a.Title, text)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			if ann, ok := cached.(*Annotation); ok {
				s.budget.RecordCacheHit()
				logger.Debug("annotation cache hit", "title", a.Title)
				return ann, nil
			}
		}
	}

	ann, err := s.callProviders(ctx, a.Title, text, a.Category)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(key, ann, cacheTTL)
	}
	return ann, nil
}

// callProviders tries Gemini first, then OpenAI, respecting the budget.
func (s *Service) callProviders(ctx context.Context, title, content, category string) (*Annotation, error) {
	var lastErr error

	if s.gemini != nil && s.budget.CanUseGemini() {
		if err := s.budget.UseGemini(); err == nil {
			ann, err := s.gemini.annotate(ctx, title, content, category)
			if err == nil {
				return ann, nil
			}
			lastErr = fmt.Errorf("%s: %w", s.gemini.name(), err)
			logger.Warn("primary provider failed", "provider", s.gemini.name(), "error", err)
		}
	}

	if s.openai != nil && s.budget.CanUseOpenAI() {
		if err := s.budget.UseOpenAI(); err == nil {
			ann, err := s.openai.annotate(ctx, title, content, category)
			if err == nil {
				return ann, nil
			}
			lastErr = fmt.Errorf("%s: %w", s.openai.name(), err)
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no provider available within budget")
	}
	return nil, lastErr
}

// buildPrompt asks for strict JSON so the response survives model chatter.
func buildPrompt(title, content, category string) string {
	content = truncateContent(content, maxPromptRunes)

	return fmt.Sprintf(`You are a news analysis assistant. Analyze the following %s article and provide:

1. A concise 2-3 sentence summary focusing on the most important information
2. 3-5 key bullet points highlighting the main facts, figures, or takeaways
3. The specific subtopic (e.g. "AI/ML", "Cloud Computing", "Stock Market", "IPO")
4. A relevance score from 0-100 based on importance and actionability for professionals

Title: %s

Content: %s

Return your response in this exact JSON format:
{
  "summary": "Your 2-3 sentence summary here",
  "key_points": ["Point 1", "Point 2", "Point 3"],
  "subtopic": "Specific subtopic",
  "relevance_score": 85
}

Only return the JSON, no additional text.`, category, title, content)
}

// truncateContent cuts on a rune boundary and tries to end at a sentence.
func truncateContent(content string, maxRunes int) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= maxRunes {
		return content
	}

	runes := []rune(content)
	trimmed := string(runes[:maxRunes])
	if idx := strings.LastIndex(trimmed, ". "); idx > maxRunes/3 {
		trimmed = trimmed[:idx+1]
	}
	return trimmed + "..."
}

type annotationJSON struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	Subtopic       string   `json:"subtopic"`
	RelevanceScore *float64 `json:"relevance_score"`
}

// parseAnnotation extracts the JSON object from a model response that may
// carry extra prose around it, fills defaults for missing fields, and clamps
// the score.
func parseAnnotation(response string) (*Annotation, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var parsed annotationJSON
	if err := json.Unmarshal([]byte(response[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("decode annotation: %w", err)
	}

	ann := &Annotation{
		Summary:        strings.TrimSpace(parsed.Summary),
		KeyPoints:      parsed.KeyPoints,
		Subtopic:       strings.TrimSpace(parsed.Subtopic),
		RelevanceScore: article.DefaultRelevance,
	}
	if parsed.RelevanceScore != nil {
		ann.RelevanceScore = article.ClampScore(int(*parsed.RelevanceScore))
	}
	if ann.Summary == "" {
		return nil, fmt.Errorf("annotation missing summary")
	}
	return ann, nil
}
