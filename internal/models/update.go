package models

import "strings"

// The inbound wire types below mirror the subset of the Bot API update
// payload the relay consumes. They are declared here rather than taken from
// tgbotapi because the v5 library predates forum topics and its Message has
// no message_thread_id or is_topic_message fields.

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type From struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type File struct {
	FileID string `json:"file_id"`
}

type Message struct {
	MessageID      int         `json:"message_id"`
	ThreadID       int64       `json:"message_thread_id,omitempty"`
	IsTopicMessage bool        `json:"is_topic_message,omitempty"`
	Chat           Chat        `json:"chat"`
	From           *From       `json:"from"`
	Text           string      `json:"text,omitempty"`
	Caption        string      `json:"caption,omitempty"`
	Photo          []PhotoSize `json:"photo,omitempty"`
	Document       *File       `json:"document,omitempty"`
	Audio          *File       `json:"audio,omitempty"`
	Video          *File       `json:"video,omitempty"`
	Voice          *File       `json:"voice,omitempty"`
	Sticker        *File       `json:"sticker,omitempty"`
}

// IsCommand reports whether the message text is a bot command.
func (m *Message) IsCommand() bool {
	return strings.HasPrefix(m.Text, "/") && len(m.Text) > 1
}

// Command returns the command name without the leading slash or a trailing
// @BotName mention, or "" if the message is not a command.
func (m *Message) Command() string {
	if !m.IsCommand() {
		return ""
	}
	cmd := strings.TrimPrefix(m.Text, "/")
	if i := strings.IndexAny(cmd, " \t\n"); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return cmd
}

// CommandArguments returns everything after the command name.
func (m *Message) CommandArguments() string {
	if !m.IsCommand() {
		return ""
	}
	if i := strings.IndexAny(m.Text, " \t\n"); i >= 0 {
		return m.Text[i+1:]
	}
	return ""
}

// Sender converts the wire identity into a User record.
func (m *Message) Sender() *User {
	if m.From == nil {
		return nil
	}
	return &User{
		ID:        m.From.ID,
		FirstName: m.From.FirstName,
		LastName:  m.From.LastName,
		Username:  m.From.Username,
	}
}
