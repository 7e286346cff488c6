package parent

import (
	"errors"
	"time"
)

// Roles a parent account can hold.
const (
	RoleParent = "PARENT"
	RoleAdmin  = "ADMIN"
)

var (
	// ErrNotFound is returned when no parent matches the lookup.
	ErrNotFound = errors.New("parent not found")
	// ErrUsernameTaken guards unique usernames.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidCredentials hides whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInactive rejects logins to disabled accounts.
	ErrInactive = errors.New("account is disabled")
	// ErrInvalidInput rejects malformed registration or profile data.
	ErrInvalidInput = errors.New("invalid parent details")
)

// Parent is a registered portal user owning one wallet and any number of children.
type Parent struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Role         string
	PasswordHash []byte
	Active       bool
	TokenVersion int
	CreatedOn    time.Time
	UpdatedOn    time.Time
}

// Registration is the input to Register.
type Registration struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}
