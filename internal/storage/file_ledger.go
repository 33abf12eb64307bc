package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type ledgerEntry struct {
	Title  string    `json:"title"`
	Link   string    `json:"link,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// FileLedger is the no-database fallback for the sent-digest ledger: a JSON
// file mapping story hashes to when they were sent.
type FileLedger struct {
	mu      sync.Mutex
	path    string
	ttl     time.Duration
	entries map[string]ledgerEntry
}

func NewFileLedger(path string, ttl time.Duration) (*FileLedger, error) {
	l := &FileLedger{
		path:    path,
		ttl:     ttl,
		entries: make(map[string]ledgerEntry),
	}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLedger) load() error {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}

	if err := json.Unmarshal(data, &l.entries); err != nil {
		return fmt.Errorf("decode ledger %s: %w", l.path, err)
	}
	return nil
}

// save writes via a temp file so a crash mid-write cannot corrupt the ledger.
func (l *FileLedger) save() error {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return os.Rename(tmp, l.path)
}

func (l *FileLedger) WasSent(_ context.Context, hash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[hash]
	if !ok {
		return false, nil
	}
	return time.Since(entry.SentAt) < l.ttl, nil
}

func (l *FileLedger) MarkSent(_ context.Context, hash, title, link string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[hash] = ledgerEntry{Title: title, Link: link, SentAt: time.Now()}
	return l.save()
}

func (l *FileLedger) Cleanup(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.ttl)
	changed := false
	for hash, entry := range l.entries {
		if entry.SentAt.Before(cutoff) {
			delete(l.entries, hash)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return l.save()
}
