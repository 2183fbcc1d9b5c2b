package domain

import "time"

// MFA delivery channels.
const (
	MfaTypeEmail = "EMAIL"
	MfaTypeSMS   = "SMS"
)

type User struct {
	UserID       string    `json:"id" dynamodbav:"user_id"`
	Email        string    `json:"email" dynamodbav:"email"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	FirstName    string    `json:"first_name" dynamodbav:"first_name"`
	LastName     string    `json:"last_name" dynamodbav:"last_name"`
	Phone        *string   `json:"phone" dynamodbav:"phone"`
	Title        string    `json:"title,omitempty" dynamodbav:"title"`
	Bio          string    `json:"bio,omitempty" dynamodbav:"bio"`
	Role         string    `json:"role" dynamodbav:"role"`
	Enabled      bool      `json:"enabled" dynamodbav:"enabled"`
	UsingMfa     bool      `json:"using_mfa" dynamodbav:"using_mfa"`
	MfaType      string    `json:"mfa_type,omitempty" dynamodbav:"mfa_type"` // "EMAIL" | "SMS"
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Password        string  `json:"password" validate:"required,min=8,max=72"`
	FirstName       string  `json:"first_name" validate:"required"`
	LastName        string  `json:"last_name" validate:"required"`
	Phone           *string `json:"phone"`
	UsingMfa        bool    `json:"using_mfa"`
	MfaType         string  `json:"mfa_type" validate:"omitempty,oneof=EMAIL SMS"`
}

type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Title     *string `json:"title"`
	Bio       *string `json:"bio"`
	UsingMfa  *bool   `json:"using_mfa"`
	MfaType   *string `json:"mfa_type" validate:"omitempty,oneof=EMAIL SMS"`
}
