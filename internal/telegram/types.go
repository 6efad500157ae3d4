package telegram

import (
	"encoding/json"

	"github.com/ru2chhw/confbot/internal/model"
)

// User is a Bot API user.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat is a Bot API chat.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

// Message is the subset of a Bot API message the bot reads.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text,omitempty"`
}

// Update is one incoming update.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// ChatMember is an entry of getChatAdministrators.
type ChatMember struct {
	User   User   `json:"user"`
	Status string `json:"status"`
}

type responseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

type apiResponse struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
}

type deleteMessageRequest struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int64 `json:"message_id"`
}

type chatRequest struct {
	ChatID int64 `json:"chat_id"`
}

type getUpdatesRequest struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

type setWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// ToCommandEvent converts an update into a command event. Updates that
// carry no text message from a user are skipped.
func ToCommandEvent(u Update) (model.CommandEvent, bool) {
	m := u.Message
	if m == nil || m.From == nil || m.Text == "" {
		return model.CommandEvent{}, false
	}
	return model.CommandEvent{
		UpdateID:  u.UpdateID,
		MessageID: m.MessageID,
		Sender: model.User{
			ID:       m.From.ID,
			Username: m.From.Username,
		},
		Chat: model.Chat{
			ID:   m.Chat.ID,
			Type: model.ChatType(m.Chat.Type),
		},
		Date: m.Date,
		Text: m.Text,
	}, true
}
