// Package notify delivers the finished digest to Telegram over the Bot API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/newspulse/internal/logger"
	"github.com/deusflow/newspulse/internal/retry"
)

const (
	apiBase = "https://api.telegram.org"

	// Telegram caps messages at 4096 chars; leave headroom for HTML tags the
	// split point might cut through.
	maxMessageLen = 4000
)

type Telegram struct {
	token  string
	chatID string
	base   string
	client *http.Client
	retry  retry.Config
}

func NewTelegram(token, chatID string, timeout time.Duration, retryCfg retry.Config) *Telegram {
	return &Telegram{
		token:  token,
		chatID: chatID,
		base:   apiBase,
		client: &http.Client{Timeout: timeout},
		retry:  retryCfg,
	}
}

// SendDigest splits the digest into Telegram-sized chunks and sends them in
// order. A failed chunk fails the whole send so a digest never goes out half.
func (t *Telegram) SendDigest(ctx context.Context, text string) error {
	chunks := splitMessage(text, maxMessageLen)
	logger.Info("sending digest", "chunks", len(chunks))

	for i, chunk := range chunks {
		err := retry.Do(ctx, t.retry, func() error {
			return t.sendMessage(ctx, chunk)
		})
		if err != nil {
			return fmt.Errorf("send chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                t.chatID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("telegram status %d: %s", resp.StatusCode, string(data))
	}
	if !parsed.OK {
		return fmt.Errorf("telegram error: %s", parsed.Description)
	}
	return nil
}

// splitMessage breaks text into chunks of at most limit characters, splitting
// on line boundaries so HTML tags and links stay intact.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
	)

	for _, line := range strings.Split(text, "\n") {
		// A single oversized line gets hard-cut; should not happen with
		// formatted digests.
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}

		if current.Len()+len(line)+1 > limit {
			chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
			current.Reset()
		}
		current.WriteString(line)
		current.WriteString("\n")
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimRight(current.String(), "\n"))
	}
	return chunks
}
