package model

import (
	"time"
)

// ParseMode selects the markup dialect of an outgoing message.
type ParseMode string

const (
	ParseModeNone     ParseMode = ""
	ParseModeMarkdown ParseMode = "Markdown"
)

// SendOptions controls how an outgoing message is rendered.
type SendOptions struct {
	ParseMode             ParseMode
	DisableWebPagePreview bool
	DisableNotification   bool
}

// SentMessage is the handle returned after sending, usable for deletion.
type SentMessage struct {
	ChatID    int64
	MessageID int64
}

// NoteAction is what happened to a stored note.
type NoteAction string

const (
	NoteActionUpdated NoteAction = "updated"
	NoteActionDeleted NoteAction = "deleted"
)

// NoteEvent describes a change to a note, published for downstream consumers.
type NoteEvent struct {
	ChatID   int64      `json:"chat_id"`
	Username string     `json:"username"`
	Action   NoteAction `json:"action"`
	ActorID  int64      `json:"actor_id"`
	At       time.Time  `json:"at"`
}
