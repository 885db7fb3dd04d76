package auth

import (
	"github.com/lmarchetti/stagepass-backend/internal/users"
	"github.com/lmarchetti/stagepass-backend/pkg/enums"
)

// RegisterRequest contains the payload required for creating an account.
type RegisterRequest struct {
	FirstName string          `json:"first_name" validate:"required"`
	LastName  string          `json:"last_name" validate:"required"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required,min=8"`
	Phone     *string         `json:"phone,omitempty"`
	Role      *enums.UserRole `json:"role,omitempty"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the token and user produced by register or login.
type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	User        *users.UserDTO `json:"user"`
}
