package models

import "time"

// Notification is a per-recipient message created by class-wide fan-out.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Validate checks a notification row read from the backend.
func (n *Notification) Validate() error {
	if n.ID == "" || n.UserID == "" {
		return ErrMissingFields
	}
	return nil
}

// NotificationFeed is the full per-user snapshot delivered on every
// change: the list newest-first plus the unread count.
type NotificationFeed struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}
