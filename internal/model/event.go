// Package model defines transport-neutral data structures shared by the bot's packages.
package model

import (
	"time"
)

// ChatType is the kind of conversation a command was issued in.
type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

// User identifies the sender of a command. Username may be empty.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Chat identifies a conversation.
type Chat struct {
	ID   int64    `json:"id"`
	Type ChatType `json:"type"`
}

// IsPrivate reports whether the chat is a one-to-one conversation.
func (c Chat) IsPrivate() bool {
	return c.Type == ChatTypePrivate
}

// CommandEvent is a single inbound instruction. It is never persisted.
type CommandEvent struct {
	UpdateID  int64  `json:"update_id"`
	MessageID int64  `json:"message_id"`
	Sender    User   `json:"sender"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// IssuedAt returns the event timestamp as a time.Time.
func (e CommandEvent) IssuedAt() time.Time {
	return time.Unix(e.Date, 0)
}
