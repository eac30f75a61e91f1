package domain

import "time"

// AuthProvider identifies how an account proves its identity.
type AuthProvider string

// AuthProviderLocal marks password-based accounts; any other value names a
// third-party identity provider.
const AuthProviderLocal AuthProvider = "local"

// Account is the permanent user record. Created by promoting a
// PendingRegistration or directly by a trusted provider login.
type Account struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string // empty for provider-backed accounts
	DateOfBirth  *time.Time
	AuthProvider AuthProvider
	IsSubscribed bool
	IsVip        bool
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
