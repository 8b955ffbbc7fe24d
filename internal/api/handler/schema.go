package handler

import (
	"time"

	"github.com/poklin/poklin/internal/core/domain"
)

// --- Request / Response types ---

type registerRequest struct {
	Name     string `json:"name"     form:"name"     example:"Alice"`
	Age      int    `json:"age"      form:"age"      example:"30"`
	Email    string `json:"email"    form:"email"    example:"alice@example.com"`
	Password string `json:"password" form:"password" example:"Secret123!"`
}

type loginRequest struct {
	Email    string `json:"email"    form:"email"    validate:"required,max=254"`
	Password string `json:"password" form:"password" validate:"required,max=1024"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age,omitempty"`
	Email     string    `json:"email"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type loginResponse struct {
	User    domain.Identity `json:"user"`
	Expires time.Time       `json:"expires"`
}

// sessionResponse is empty for anonymous callers.
type sessionResponse struct {
	User    *domain.Identity `json:"user,omitempty"`
	Expires *time.Time       `json:"expires,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Name:      u.Name,
		Age:       u.Age,
		Email:     u.Email,
		Image:     u.Image,
		CreatedAt: u.CreatedAt,
	}
}
