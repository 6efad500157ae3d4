// Package telegram is a small Bot API client covering what the bot needs:
// identity, sending and deleting messages, administrator lists, and both
// update delivery modes.
package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ru2chhw/confbot/internal/model"
)

// DefaultAPIURL is the public Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// APIError is a Bot API call that returned ok=false.
type APIError struct {
	Method      string
	Code        int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// Client calls the Bot API over HTTPS.
type Client struct {
	http  *resty.Client
	token string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP timeout. It must exceed the long-poll timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// NewClient creates a client for the given API base URL and bot token.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	c := &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("User-Agent", "confbot/1.0").
			SetHeader("Content-Type", "application/json").
			SetTimeout(60 * time.Second),
		token: token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	var envelope apiResponse
	req := c.http.R().
		SetContext(ctx).
		SetResult(&envelope).
		SetError(&envelope)
	if params != nil {
		req.SetBody(params)
	}

	// The token is part of the path; never include the URL in errors.
	resp, err := req.Post("/bot" + c.token + "/" + method)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("telegram %s: %w", method, err)
	}

	if !envelope.OK {
		apiErr := &APIError{
			Method:      method,
			Code:        envelope.ErrorCode,
			Description: envelope.Description,
		}
		if apiErr.Code == 0 {
			apiErr.Code = resp.StatusCode()
		}
		if envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("telegram %s: decode result: %w", method, err)
	}
	return nil
}

// GetMe returns the bot's own identity.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// SendMessage posts text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, opts model.SendOptions) (model.SentMessage, error) {
	var msg Message
	err := c.call(ctx, "sendMessage", sendMessageRequest{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             string(opts.ParseMode),
		DisableWebPagePreview: opts.DisableWebPagePreview,
		DisableNotification:   opts.DisableNotification,
	}, &msg)
	if err != nil {
		return model.SentMessage{}, err
	}
	return model.SentMessage{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

// DeleteMessage removes a message from a chat.
func (c *Client) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	return c.call(ctx, "deleteMessage", deleteMessageRequest{ChatID: chatID, MessageID: messageID}, nil)
}

// GetChatAdministrators returns the current administrators of a chat.
func (c *Client) GetChatAdministrators(ctx context.Context, chatID int64) ([]model.User, error) {
	var members []ChatMember
	if err := c.call(ctx, "getChatAdministrators", chatRequest{ChatID: chatID}, &members); err != nil {
		return nil, err
	}
	admins := make([]model.User, 0, len(members))
	for _, m := range members {
		admins = append(admins, model.User{ID: m.User.ID, Username: m.User.Username})
	}
	return admins, nil
}

// GetUpdates long-polls for updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	var updates []Update
	err := c.call(ctx, "getUpdates", getUpdatesRequest{
		Offset:         offset,
		Timeout:        int(timeout / time.Second),
		AllowedUpdates: []string{"message"},
	}, &updates)
	if err != nil {
		return nil, err
	}
	return updates, nil
}

// SetWebhook registers webhookURL as the push endpoint.
func (c *Client) SetWebhook(ctx context.Context, webhookURL, secretToken string) error {
	return c.call(ctx, "setWebhook", setWebhookRequest{
		URL:            webhookURL,
		SecretToken:    secretToken,
		AllowedUpdates: []string{"message"},
	}, nil)
}

// DeleteWebhook removes any registered webhook so getUpdates works.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", nil, nil)
}
