package domain

import "time"

// TokenKind discriminates the credential types stored in the shared tokens table.
type TokenKind string

const (
	TokenKindAccess            TokenKind = "ACCESS"
	TokenKindRefresh           TokenKind = "REFRESH"
	TokenKindEmailVerification TokenKind = "EMAIL_VERIFICATION"
	TokenKindPasswordChange    TokenKind = "PASSWORD_CHANGE"
	TokenKindUnsubscribe       TokenKind = "UNSUBSCRIBE"
)

// TokenExtra carries the kind-specific payload persisted alongside a token
// record. Only the fields relevant to the record's kind are set.
type TokenExtra struct {
	// Scope applies to access tokens.
	Scope []string `json:"scope,omitempty"`
	// LastAccessTokenValue applies to refresh tokens: the signed value of
	// the single access token this refresh token most recently spawned.
	LastAccessTokenValue string `json:"last_access_token_value,omitempty"`
	// Email applies to email-verification and password-change tokens.
	Email string `json:"email,omitempty"`
}

// Token is the durable, revocable counterpart to a signed credential.
// A record's presence in the store is necessary for validity; deleting it
// revokes the credential before its cryptographic expiry.
type Token struct {
	ID          string
	SubjectID   string
	Kind        TokenKind
	SignedValue string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	Extra       TokenExtra
	CreatedAt   time.Time
}

// Expired reports whether the record's expiry has passed at the given instant.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
