package domain

import "time"

// User is the only persisted entity. Email is the natural key.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Age          int       `json:"age,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Image        string    `json:"image,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the user can sign in with credentials.
// Users created through an external OAuth provider have no password.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// Identity returns the display-safe projection of the user.
func (u *User) Identity() Identity {
	return Identity{
		ID:    u.ID,
		Email: u.Email,
		Name:  u.Name,
		Image: u.Image,
	}
}

// Sanitized returns a copy of the user without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}

// DaysActive returns the number of whole days elapsed since the user was created.
func (u *User) DaysActive(now time.Time) int {
	if u.CreatedAt.IsZero() || now.Before(u.CreatedAt) {
		return 0
	}
	return int(now.Sub(u.CreatedAt) / (24 * time.Hour))
}

// MemberSince formats the creation date as "January 2006".
func (u *User) MemberSince() string {
	if u.CreatedAt.IsZero() {
		return ""
	}
	return u.CreatedAt.Format("January 2006")
}

// Identity is an authenticated user, independent of the provider that produced it.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}
