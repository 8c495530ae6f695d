package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tico/internal/services"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram sends channel messages via the Bot API.
type Telegram struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
}

// TelegramOption customizes the sender.
type TelegramOption func(*Telegram)

// WithTelegramBaseURL overrides the Bot API host (used by tests).
func WithTelegramBaseURL(baseURL string) TelegramOption {
	return func(t *Telegram) {
		t.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTelegramHTTPClient overrides the HTTP client.
func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(t *Telegram) {
		if client != nil {
			t.client = client
		}
	}
}

// NewTelegram builds a sender for the configured bot and channel.
func NewTelegram(botToken, chatID string, opts ...TelegramOption) *Telegram {
	t := &Telegram{
		baseURL:  defaultTelegramAPI,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SendMessage posts one MarkdownV2 message to the channel with link previews
// disabled.
func (t *Telegram) SendMessage(ctx context.Context, text string) error {
	if t.botToken == "" || t.chatID == "" {
		return services.Wrap(services.ErrConfiguration, "telegram", "send message", "bot token and channel id required", nil)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "MarkdownV2")
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return services.Wrap(services.ErrTransient, "telegram", "build request", "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "telegram", "send message", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return services.Wrap(services.ErrTransient, "telegram", "send message",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	return nil
}
