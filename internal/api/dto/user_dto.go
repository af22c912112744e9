package dto

import (
	"time"

	"github.com/spec-kit/complaint-service/internal/auth"
)

// CitizenRegisterRequest payload for new citizen accounts.
type CitizenRegisterRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	DistrictID *string `json:"district_id,omitempty"`
}

// LoginRequest payload for citizen and staff login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChangePasswordRequest payload for password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewAuthResponse maps an issued token.
func NewAuthResponse(token *auth.IssuedToken) AuthResponse {
	return AuthResponse{Token: token.Token, ExpiresAt: token.ExpiresAt}
}
