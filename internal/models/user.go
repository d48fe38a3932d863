package models

import "time"

// Role is fixed when the account is created.
type Role string

const (
	RoleClient  Role = "client"
	RoleCompany Role = "company"
)

// User is a client or transportation-company account.
type User struct {
	ID             string    `json:"id" db:"id"` // UUID string from DB
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Role           Role      `json:"role" db:"role"`
	Phone          string    `json:"phone,omitempty" db:"phone"`
	CompanyName    string    `json:"company_name,omitempty" db:"company_name"`
	CNPJ           string    `json:"cnpj,omitempty" db:"cnpj"`
	AuthProvider   string    `json:"auth_provider" db:"auth_provider"`
	AuthProviderID string    `json:"-" db:"auth_provider_id"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID string
	Role   Role
}

func (a Actor) IsClient() bool  { return a.Role == RoleClient }
func (a Actor) IsCompany() bool { return a.Role == RoleCompany }

type SignupRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Role        Role   `json:"role" validate:"required,oneof=client company"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
	CompanyName string `json:"company_name" validate:"omitempty,max=150"`
	CNPJ        string `json:"cnpj" validate:"omitempty,cnpj"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// UserUpdateData defines fields that can be updated for a user profile. Role is never editable.
type UserUpdateData struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	CompanyName *string `json:"company_name,omitempty" validate:"omitempty,max=150"`
}

// RequestPasswordResetRequest defines the body for the request password reset endpoint.
type RequestPasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest defines the body for completing the password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}
