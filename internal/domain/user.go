package domain

import "time"

type User struct {
	UserID        string     `json:"id" dynamodbav:"user_id"`
	Email         string     `json:"email" dynamodbav:"email"`
	PasswordHash  string     `json:"-" dynamodbav:"password_hash"`
	PasswordSalt  string     `json:"-" dynamodbav:"password_salt"`
	EmailVerified bool       `json:"email_verified" dynamodbav:"email_verified"`
	Enable        bool       `json:"enable" dynamodbav:"enable"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" dynamodbav:"deleted_at"`
	CreatedAt     time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// HasPassword reports whether the account was created with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=128"`
	DisplayName string `json:"display_name" validate:"max=80"`
	Code        string `json:"code" validate:"required,numeric"`
}

type PasswordLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
