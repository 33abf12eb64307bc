// Package storage persists processed articles and remembers which stories
// already went out in a digest. Postgres is the primary backend; a JSON file
// ledger covers deployments without a database.
package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/deusflow/newspulse/internal/article"
	"github.com/deusflow/newspulse/internal/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
    id              SERIAL PRIMARY KEY,
    url             TEXT UNIQUE NOT NULL,
    title           TEXT NOT NULL,
    description     TEXT,
    content         TEXT,
    author          TEXT,
    source          TEXT,
    category        TEXT,
    subtopic        TEXT,
    summary         TEXT,
    key_points      JSONB,
    relevance_score INT NOT NULL DEFAULT 50,
    is_filtered     BOOLEAN NOT NULL DEFAULT FALSE,
    filter_reason   TEXT,
    is_duplicate    BOOLEAN NOT NULL DEFAULT FALSE,
    published_date  TIMESTAMPTZ,
    fetched_date    TIMESTAMPTZ NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_articles_fetched ON articles (fetched_date DESC);
CREATE INDEX IF NOT EXISTS idx_articles_score ON articles (relevance_score DESC);

CREATE TABLE IF NOT EXISTS sent_digests (
    hash    TEXT PRIMARY KEY,
    title   TEXT NOT NULL,
    link    TEXT,
    sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// New connects to Postgres, verifies the connection and ensures the schema.
// ttl bounds how long a sent digest entry blocks re-sending.
func New(databaseURL string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Info("postgres storage ready")
	return &Store{db: db, ttl: ttl}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveArticles upserts the batch keyed by URL. Re-running the pipeline over
// the same feeds updates existing rows instead of duplicating them.
func (s *Store) SaveArticles(ctx context.Context, articles []article.Article) error {
	if len(articles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (
			url, title, description, content, author, source, category,
			subtopic, summary, key_points, relevance_score,
			is_filtered, filter_reason, is_duplicate,
			published_date, fetched_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (url) DO UPDATE SET
			title           = EXCLUDED.title,
			description     = EXCLUDED.description,
			content         = EXCLUDED.content,
			subtopic        = EXCLUDED.subtopic,
			summary         = EXCLUDED.summary,
			key_points      = EXCLUDED.key_points,
			relevance_score = EXCLUDED.relevance_score,
			is_filtered     = EXCLUDED.is_filtered,
			filter_reason   = EXCLUDED.filter_reason,
			is_duplicate    = EXCLUDED.is_duplicate,
			fetched_date    = EXCLUDED.fetched_date`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range articles {
		keyPoints, err := json.Marshal(a.KeyPoints)
		if err != nil {
			return fmt.Errorf("marshal key points: %w", err)
		}

		var published any
		if !a.PublishedDate.IsZero() {
			published = a.PublishedDate
		}

		if _, err := stmt.ExecContext(ctx,
			a.URL, a.Title, a.Description, a.Content, a.Author, a.Source,
			a.Category, a.Subtopic, a.Summary, keyPoints, a.RelevanceScore,
			a.IsFiltered, a.FilterReason, a.IsDuplicate,
			published, a.FetchedDate,
		); err != nil {
			return fmt.Errorf("upsert article %q: %w", a.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// WasSent reports whether this story already went out within the TTL window.
func (s *Store) WasSent(ctx context.Context, hash string) (bool, error) {
	var sentAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT sent_at FROM sent_digests WHERE hash = $1`, hash).Scan(&sentAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query sent digest: %w", err)
	}
	return time.Since(sentAt) < s.ttl, nil
}

// MarkSent records the story in the ledger.
func (s *Store) MarkSent(ctx context.Context, hash, title, link string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sent_digests (hash, title, link, sent_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (hash) DO UPDATE SET sent_at = NOW()`,
		hash, title, link)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// Cleanup drops ledger entries older than the TTL window.
func (s *Store) Cleanup(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sent_digests WHERE sent_at < $1`, time.Now().Add(-s.ttl))
	if err != nil {
		return fmt.Errorf("cleanup ledger: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logger.Debug("cleaned sent digest ledger", "removed", n)
	}
	return nil
}

// Stats returns row counts for the metrics endpoint.
func (s *Store) Stats(ctx context.Context) (map[string]any, error) {
	var articleCount, sentCount int64

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles`).Scan(&articleCount); err != nil {
		return nil, fmt.Errorf("count articles: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sent_digests`).Scan(&sentCount); err != nil {
		return nil, fmt.Errorf("count sent digests: %w", err)
	}

	return map[string]any{
		"articles_total":     articleCount,
		"sent_digests_total": sentCount,
	}, nil
}

// Recent returns the highest-scored unfiltered articles from the last day,
// for ad-hoc inspection of what the pipeline kept.
func (s *Store) Recent(ctx context.Context, limit int) ([]article.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, title, source, category, subtopic, summary, relevance_score, fetched_date
		FROM articles
		WHERE NOT is_filtered AND fetched_date > NOW() - INTERVAL '24 hours'
		ORDER BY relevance_score DESC, fetched_date DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []article.Article
	for rows.Next() {
		var a article.Article
		var subtopic, summary sql.NullString
		if err := rows.Scan(&a.URL, &a.Title, &a.Source, &a.Category,
			&subtopic, &summary, &a.RelevanceScore, &a.FetchedDate); err != nil {
			return nil, fmt.Errorf("scan recent: %w", err)
		}
		a.Subtopic = subtopic.String
		a.Summary = summary.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// GenerateNewsHash builds a stable identity for a story from its normalized
// title and the host it came from, so the same story re-fetched with a
// different tracking URL still counts as sent.
func GenerateNewsHash(title, link string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(title), " "))

	host := ""
	if u, err := url.Parse(link); err == nil {
		host = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	}

	sum := sha256.Sum256([]byte(normalized + "|" + host))
	return hex.EncodeToString(sum[:])[:16]
}
