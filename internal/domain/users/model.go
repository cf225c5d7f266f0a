package users

import (
	"net/mail"
	"strings"
	"time"

	"subscription-backend/internal/apperr"

	"github.com/google/uuid"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6

	RoleUser  = "user"
	RoleAdmin = "admin"

	StatusActive   = "active"
	StatusDisabled = "disabled"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"not null" json:"username"`
	Email        string    `gorm:"not null;uniqueIndex:idx_users_email" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	Status       string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizeEmail lowercases and trims so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// New validates the registration input; the password must already be hashed.
func New(username, email, passwordHash, role string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)

	if len([]rune(username)) < MinUsernameLength {
		return nil, apperr.Validation("username must be at least %d characters", MinUsernameLength)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, apperr.Validation("invalid email format")
	}
	if role != RoleAdmin {
		role = RoleUser
	}

	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) IsActive() bool { return u.Status == StatusActive }

// ValidatePassword enforces the minimum length before hashing.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperr.Validation("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
