package domain

import "time"

// PendingRegistration holds a not-yet-confirmed signup in a time-limited
// staging area. At most one staging record exists per email; a repeated
// signup before confirmation updates the record in place and resets its TTL.
type PendingRegistration struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string // required iff AuthProvider == local
	DateOfBirth  *time.Time
	IsSubscribed bool
	AuthProvider AuthProvider
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToAccount copies the staged fields into a permanent account. The staging
// id and expiry are internal and do not carry over.
func (p *PendingRegistration) ToAccount() *Account {
	return &Account{
		Email:        p.Email,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PasswordHash: p.PasswordHash,
		DateOfBirth:  p.DateOfBirth,
		AuthProvider: p.AuthProvider,
		IsSubscribed: p.IsSubscribed,
		Verified:     true,
	}
}
