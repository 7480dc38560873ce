package models

import "time"

// User mirrors the Telegram identity of an end user. It is refreshed on
// every inbound private message and never deleted.
type User struct {
	ID        int64     `json:"user_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	Username  string    `json:"username,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns "First Last @username" with empty parts skipped.
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		name += " " + u.LastName
	}
	if u.Username != "" {
		name += " @" + u.Username
	}
	return name
}

// TruncateTitle bounds a thread display name to limit runes.
func TruncateTitle(title string, limit int) string {
	runes := []rune(title)
	if len(runes) <= limit {
		return title
	}
	return string(runes[:limit])
}

// Thread is the routing record binding one user to one forum topic inside
// the support group. Threads are never deleted; closing a thread only sets
// IsArchived.
type Thread struct {
	ThreadID   int64     `json:"thread_id"`
	GroupID    int64     `json:"group_id"`
	UserID     int64     `json:"user_id"`
	Title      string    `json:"title"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
