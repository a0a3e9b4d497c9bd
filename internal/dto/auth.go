// Package dto holds the request shapes accepted by the HTTP handlers and the
// conversions from those shapes into service inputs.
package dto

import "strings"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,trimmed,max=100"`
	Password string `json:"password" validate:"required,min=6,max=128,bcryptlen"`
}

// Normalize trims whitespace the rules should not count.
func (r *RegisterRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
