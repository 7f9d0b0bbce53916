package models

import "github.com/google/uuid"

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	UserName string `json:"userName" validate:"required,max=256"`
	Email    string `json:"email" validate:"required,max=256"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	ID       uuid.UUID `json:"id"`
	UserName string    `json:"userName"`
	Email    string    `json:"email"`
	Roles    []string  `json:"roles"`
	Token    string    `json:"token"`
}

