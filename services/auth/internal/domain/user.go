package domain

import (
	"time"
)

// Valid user roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Valid account statuses
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User is a row of the credential store.
type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	FullName            *string    `json:"full_name"`
	Phone               *string    `json:"phone"`
	Role                string     `json:"role"`
	Status              string     `json:"status"`
	FailedLoginAttempts int        `json:"failed_login_attempts"`
	LastLogin           *time.Time `json:"last_login"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// NewUser is what the registration flow hands to the store.
type NewUser struct {
	Email        string
	PasswordHash string
	FullName     *string
	Phone        *string
	Role         string
	Status       string
}

// UserOut is the public representation of a user. It never carries the
// password hash.
type UserOut struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	FullName  *string    `json:"full_name"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

func (u *User) ToUserOut() *UserOut {
	return &UserOut{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

type CreateUserRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=1,max=1024"`
	FullName *string `json:"full_name" validate:"omitempty,max=255"`
	Role     string  `json:"role" validate:"omitempty,oneof=admin user"`
	Status   string  `json:"status" validate:"omitempty,oneof=active disabled"`
}

// LoginRequest is the OAuth2 password form; username carries the email.
type LoginRequest struct {
	Username string `form:"username" validate:"required,max=255"`
	Password string `form:"password" validate:"required,max=1024"`
}

// TokenPair is the login response body.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
}
