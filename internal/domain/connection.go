package domain

import "time"

// Connection is a confirmed handshake between two users.
// UserA is always the lexicographically smaller id.
type Connection struct {
	UserA     string    `json:"user_a" db:"user_a"`
	UserB     string    `json:"user_b" db:"user_b"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewConnection builds a canonical connection for the unordered pair.
func NewConnection(a, b string) (Connection, error) {
	if a == "" || b == "" {
		return Connection{}, ErrInvalidInput
	}
	if a == b {
		return Connection{}, ErrSelfConnection
	}
	// Ensure user_a < user_b for constraint
	if a > b {
		a, b = b, a
	}
	return Connection{UserA: a, UserB: b}, nil
}

func (c Connection) HasUser(userID string) bool {
	return c.UserA == userID || c.UserB == userID
}

func (c Connection) GetOtherUserID(userID string) (string, bool) {
	if c.UserA == userID {
		return c.UserB, true
	}
	if c.UserB == userID {
		return c.UserA, true
	}
	return "", false
}
