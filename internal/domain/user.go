package domain

import (
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// User-specific validation errors
var (
	ErrUserIDEmpty         = errors.New("user ID cannot be empty")
	ErrUserEmailEmpty      = errors.New("email cannot be empty")
	ErrUserNameEmpty       = errors.New("name cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 8 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
)

// User represents a registered user of the task board.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Password       string    `json:"-"` // Plaintext, held only during registration
	HashedPassword string    `json:"-"` // Never exposed in JSON
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new User with the given email, name, and plaintext
// password. The caller is responsible for hashing the password before
// storing the user. Returns an error if validation fails.
func NewUser(email, name, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		ID:        uuid.New(),
		Email:     email,
		Name:      name,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrUserIDEmpty
	}
	if u.Email == "" {
		return ErrUserEmailEmpty
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	if u.Name == "" {
		return ErrUserNameEmpty
	}
	if u.HashedPassword == "" {
		if len(u.Password) < 8 {
			return ErrPasswordTooShort
		}
		if len(u.Password) > 72 {
			return ErrPasswordTooLong
		}
	}
	return nil
}
