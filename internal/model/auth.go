package model

import "time"

type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type PatientLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned by every login/register endpoint.
type TokenResponse struct {
	Token     string      `json:"token"`
	Role      string      `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      interface{} `json:"user"`
}
