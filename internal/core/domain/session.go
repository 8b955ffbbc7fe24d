package domain

import "time"

// Claims is the verified payload of a session token.
type Claims struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Age returns how long ago the token was issued.
func (c *Claims) Age(now time.Time) time.Duration {
	return now.Sub(c.IssuedAt)
}
