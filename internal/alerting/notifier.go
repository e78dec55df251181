package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"market-snapshot/internal/snapshot"
)

// maxListedFailures caps how many failed symbols a single message names.
const maxListedFailures = 10

// Defaults applied when the alerting config leaves them unset.
const (
	defaultAPIBase     = "https://api.telegram.org"
	defaultHTTPTimeout = 10 * time.Second
)

// Notification summarises a degraded snapshot run.
type Notification struct {
	GeneratedAt  time.Time
	Total        int
	OK           int
	Stale        int
	Missing      int
	Failures     []snapshot.FetchFailure
	SnapshotPath string
}

// Notifier delivers run degradation notices.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier. An empty baseURL
// selects the public Bot API endpoint.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	if baseURL == "" {
		baseURL = defaultAPIBase
	}

	return &TelegramNotifier{
		token:   botToken,
		chatID:  chatID,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "telegram_notifier").Logger(),
	}
}

// Notify delivers the degradation summary through the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: n.chatID, Text: renderMessage(note)})
	if err != nil {
		return fmt.Errorf("encode telegram message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}

	var result sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram: sendMessage returned ok=false")
	}

	n.logger.Info().
		Time("generated_at", note.GeneratedAt).
		Int("fetch_errors", len(note.Failures)).
		Msg("degradation alert sent (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[marketsnap] degraded snapshot run\n")
	builder.WriteString(fmt.Sprintf("Generated: %s\n", note.GeneratedAt.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Quotes: %d (ok %d / stale %d / missing %d)\n", note.Total, note.OK, note.Stale, note.Missing))

	if len(note.Failures) > 0 {
		listed := note.Failures
		if len(listed) > maxListedFailures {
			listed = listed[:maxListedFailures]
		}
		parts := make([]string, 0, len(listed))
		for _, failure := range listed {
			parts = append(parts, fmt.Sprintf("%s (%s)", failure.Symbol, failure.Reason))
		}
		builder.WriteString(fmt.Sprintf("Failed: %s", strings.Join(parts, ", ")))
		if rest := len(note.Failures) - len(listed); rest > 0 {
			builder.WriteString(fmt.Sprintf(" and %d more", rest))
		}
		builder.WriteString("\n")
	}

	if note.SnapshotPath != "" {
		builder.WriteString(fmt.Sprintf("Snapshot: %s\n", note.SnapshotPath))
	}
	return builder.String()
}

// Telegram Bot API wire types.

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK bool `json:"ok"`
}

var _ Notifier = (*TelegramNotifier)(nil)
