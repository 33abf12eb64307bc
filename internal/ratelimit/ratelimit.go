// Package ratelimit caps how many AI requests one run may spend, per
// provider and in total. Summarization is the only paid stage of the
// pipeline, so the budget is the cost control.
package ratelimit

import (
	"fmt"
	"sync"

	"github.com/deusflow/newspulse/internal/logger"
)

type Budget struct {
	mu          sync.Mutex
	geminiUsed  int
	openaiUsed  int
	totalUsed   int
	maxGemini   int
	maxOpenAI   int
	maxTotal    int
	cacheHits   int
	cacheMisses int
}

// NewBudget builds a per-run budget. A zero limit means unlimited for that
// counter.
func NewBudget(maxGemini, maxOpenAI, maxTotal int) *Budget {
	return &Budget{
		maxGemini: maxGemini,
		maxOpenAI: maxOpenAI,
		maxTotal:  maxTotal,
	}
}

// CanUseGemini reports whether another Gemini request fits the budget.
func (b *Budget) CanUseGemini() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fits(b.geminiUsed, b.maxGemini)
}

// CanUseOpenAI reports whether another OpenAI request fits the budget.
func (b *Budget) CanUseOpenAI() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fits(b.openaiUsed, b.maxOpenAI)
}

func (b *Budget) fits(used, max int) bool {
	if max > 0 && used >= max {
		return false
	}
	if b.maxTotal > 0 && b.totalUsed >= b.maxTotal {
		return false
	}
	return true
}

// UseGemini spends one Gemini request.
func (b *Budget) UseGemini() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.fits(b.geminiUsed, b.maxGemini) {
		return fmt.Errorf("gemini request budget exhausted (%d/%d)", b.geminiUsed, b.maxGemini)
	}

	b.geminiUsed++
	b.totalUsed++
	b.cacheMisses++
	return nil
}

// UseOpenAI spends one OpenAI request.
func (b *Budget) UseOpenAI() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.fits(b.openaiUsed, b.maxOpenAI) {
		return fmt.Errorf("openai request budget exhausted (%d/%d)", b.openaiUsed, b.maxOpenAI)
	}

	b.openaiUsed++
	b.totalUsed++
	b.cacheMisses++
	return nil
}

// RecordCacheHit notes an annotation served from cache instead of the API.
func (b *Budget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// Stats returns a snapshot for the metrics endpoint.
func (b *Budget) Stats() map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()

	hitRate := 0.0
	if total := b.cacheHits + b.cacheMisses; total > 0 {
		hitRate = float64(b.cacheHits) / float64(total) * 100
	}

	return map[string]any{
		"gemini_used":    b.geminiUsed,
		"gemini_limit":   b.maxGemini,
		"openai_used":    b.openaiUsed,
		"openai_limit":   b.maxOpenAI,
		"total_used":     b.totalUsed,
		"total_limit":    b.maxTotal,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": hitRate,
	}
}

// LogStats emits the snapshot at the end of a run.
func (b *Budget) LogStats() {
	stats := b.Stats()
	logger.Info("ai budget",
		"gemini", fmt.Sprintf("%v/%v", stats["gemini_used"], stats["gemini_limit"]),
		"openai", fmt.Sprintf("%v/%v", stats["openai_used"], stats["openai_limit"]),
		"total", fmt.Sprintf("%v/%v", stats["total_used"], stats["total_limit"]),
		"cache_hit_rate", stats["cache_hit_rate"],
	)
}
