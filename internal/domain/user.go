package domain

import (
	"strings"
	"time"
)

type User struct {
	ID          string     `json:"id" db:"id"`
	DisplayName string     `json:"display_name" db:"display_name"`
	City        *string    `json:"city" db:"city"`
	Country     *string    `json:"country" db:"country"`
	Lat         *float64   `json:"lat" db:"lat"`
	Lng         *float64   `json:"lng" db:"lng"`
	Budget      float64    `json:"budget" db:"budget"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// IsLive reports whether the user has not been soft-deleted.
func (u *User) IsLive() bool {
	return u != nil && u.DeletedAt == nil
}

// SameLocality reports whether both users declare the same city and country.
// Missing values never match.
func (u *User) SameLocality(other *User) bool {
	if u == nil || other == nil {
		return false
	}
	return equalFold(u.City, other.City) && equalFold(u.Country, other.Country)
}

func equalFold(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	x, y := strings.TrimSpace(*a), strings.TrimSpace(*b)
	if x == "" || y == "" {
		return false
	}
	return strings.EqualFold(x, y)
}
