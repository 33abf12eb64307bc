package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesFetched    int64
	ClickbaitFiltered  int64
	LowQualityFiltered int64
	DuplicatesFiltered int64
	ArticlesSummarized int64
	SummarizeFailures  int64
	ArticlesStored     int64
	DigestsSent        int64

	// Timings
	LastRunDuration    time.Duration
	TotalRunDuration   time.Duration
	AverageRunDuration time.Duration
	RunCount           int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFetched += int64(n)
}

func (m *Metrics) AddClickbait(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClickbaitFiltered += int64(n)
}

func (m *Metrics) AddLowQuality(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LowQualityFiltered += int64(n)
}

func (m *Metrics) AddDuplicates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesFiltered += int64(n)
}

func (m *Metrics) IncrementSummarized() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesSummarized++
}

func (m *Metrics) IncrementSummarizeFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummarizeFailures++
}

func (m *Metrics) AddStored(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesStored += int64(n)
}

func (m *Metrics) IncrementDigestsSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DigestsSent++
}

func (m *Metrics) RecordRunDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRunDuration = d
	m.TotalRunDuration += d
	m.RunCount++
	m.AverageRunDuration = m.TotalRunDuration / time.Duration(m.RunCount)
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_fetched":        m.ArticlesFetched,
		"clickbait_filtered":      m.ClickbaitFiltered,
		"low_quality_filtered":    m.LowQualityFiltered,
		"duplicates_filtered":     m.DuplicatesFiltered,
		"articles_summarized":     m.ArticlesSummarized,
		"summarize_failures":      m.SummarizeFailures,
		"articles_stored":         m.ArticlesStored,
		"digests_sent":            m.DigestsSent,
		"last_run_duration_ms":    m.LastRunDuration.Milliseconds(),
		"average_run_duration_ms": m.AverageRunDuration.Milliseconds(),
		"last_run_time":           m.LastRunTime.Format(time.RFC3339),
		"last_error_time":         m.LastErrorTime.Format(time.RFC3339),
		"last_error":              m.LastError,
		"is_healthy":              m.IsHealthy,
	}
}
