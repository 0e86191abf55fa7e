package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/panchang-bot/internal/observability"
)

const (
	// DefaultAPIBase is the public Bot API endpoint.
	DefaultAPIBase = "https://api.telegram.org"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 16
)

var ErrInvalidToken = errors.New("telegram bot token is required")

// APIError is a Bot API call that returned ok=false or a non-2xx status.
type APIError struct {
	Method      string
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram %s failed: HTTP %d", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("telegram %s failed: HTTP %d: %s", e.Method, e.StatusCode, e.Description)
}

// Sender sends a message to a chat. parseMode "" sends plain text.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
}

// Bot is the Telegram Bot API client.
type Bot struct {
	token      string
	apiURL     string
	httpClient *http.Client
}

// NewBot creates a Bot for token. timeout bounds each API call; 0 uses 10s.
func NewBot(token string, timeout time.Duration) (*Bot, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Bot{
		token:      token,
		apiURL:     fmt.Sprintf("%s/bot%s", DefaultAPIBase, token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetAPIURL overrides the API URL, including the bot path. Used by tests.
func (b *Bot) SetAPIURL(apiURL string) {
	b.apiURL = apiURL
}

// SetWebhook registers webhookURL with Telegram. Pending updates queued while
// no webhook was set are dropped when dropPending is true.
func (b *Bot) SetWebhook(ctx context.Context, webhookURL, secretToken string, dropPending bool) error {
	return b.call(ctx, "setWebhook", SetWebhookRequest{
		URL:                webhookURL,
		SecretToken:        secretToken,
		DropPendingUpdates: dropPending,
		AllowedUpdates:     []string{"message"},
	}, nil)
}

// GetMe returns the bot's own user record. Used to check the token at startup.
func (b *Bot) GetMe(ctx context.Context) (User, error) {
	var me User
	err := b.call(ctx, "getMe", nil, &me)
	return me, err
}

// SendMessage sends text to chatID. parseMode "" sends plain text.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	return b.call(ctx, "sendMessage", SendMessageRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: parseMode,
	}, nil)
}

// call POSTs payload to method and decodes the result field into out when non-nil.
func (b *Bot) call(ctx context.Context, method string, payload, out interface{}) (err error) {
	defer func() { observability.RecordTelegramCall(method, err) }()

	var body io.Reader = http.NoBody
	if payload != nil {
		raw, mErr := json.Marshal(payload)
		if mErr != nil {
			return fmt.Errorf("marshal %s: %w", method, mErr)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL+"/"+method, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		// the URL embeds the token; keep it out of logs
		var uErr *url.Error
		if errors.As(err, &uErr) {
			uErr.URL = method
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		APIResponse
		Result json.RawMessage `json:"result,omitempty"`
	}
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (decodeErr == nil && !envelope.OK) {
		return &APIError{Method: method, StatusCode: resp.StatusCode, Description: envelope.Description}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode %s response: %w", method, decodeErr)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}
