package dto

import "time"

// StaffLoginRequest payload. Email also accepts a staff short code.
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// VisitorTokenRequest payload.
type VisitorTokenRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

// AuthResponse carries a signed token.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StaffResponse is the public view of a staff member.
type StaffResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	ShortCode  string `json:"short_code,omitempty"`
	Department string `json:"department,omitempty"`
}

// VisitorResponse describes the anonymous caller a token was issued for.
type VisitorResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
