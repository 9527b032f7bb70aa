package domain

import "time"

// User represents a listener or administrator account.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash []byte
	IsAdmin      bool
	CreatedAt    time.Time
}

// Identity is the verified caller of an operation.
type Identity struct {
	UserID  string
	IsAdmin bool
}

// UserWithSongs pairs an account with the songs it uploaded.
type UserWithSongs struct {
	User  User
	Songs []Song
}
