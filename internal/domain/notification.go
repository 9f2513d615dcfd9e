package domain

import (
	"time"

	"github.com/lib/pq"
)

type NotificationType string

const (
	NotificationHelpRequest NotificationType = "help_request"
)

// Notification is unique per (user, collection, type, wave).
type Notification struct {
	ID           string           `json:"id" db:"id"`
	UserID       string           `json:"user_id" db:"user_id"`
	CollectionID string           `json:"collection_id" db:"collection_id"`
	Type         NotificationType `json:"type" db:"type"`
	Path         pq.StringArray   `json:"path" db:"path"`
	Wave         int              `json:"wave" db:"wave"`
	ExpiresAt    time.Time        `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
