package dto

import (
	"time"

	"github.com/spec-kit/account-service/internal/domain"
)

// LoginRequest payload for local login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProviderLoginRequest payload for provider login and provider signup.
type ProviderLoginRequest struct {
	Token string `json:"token"`
}

// RefreshRequest payload for POST /auth/refresh. Either token may instead
// arrive via the Authorization header or the session cookies.
type RefreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RevokeRequest payload for POST /auth/revoke.
type RevokeRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// PasswordResetRequest payload for requesting a reset token.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest payload for completing a reset.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// TokenResponse describes one issued credential.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse carries an access/refresh pair.
type SessionResponse struct {
	AccessToken  TokenResponse `json:"access_token"`
	RefreshToken TokenResponse `json:"refresh_token"`
}

// NewSessionResponse maps issued tokens into the wire shape.
func NewSessionResponse(access, refresh *domain.Token) SessionResponse {
	return SessionResponse{
		AccessToken:  TokenResponse{Token: access.SignedValue, ExpiresAt: access.ExpiresAt},
		RefreshToken: TokenResponse{Token: refresh.SignedValue, ExpiresAt: refresh.ExpiresAt},
	}
}

// AccountResponse is the public account shape.
type AccountResponse struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	AuthProvider string `json:"auth_provider"`
	IsSubscribed bool   `json:"is_subscribed"`
	IsVip        bool   `json:"is_vip"`
	Verified     bool   `json:"verified"`
}

// NewAccountResponse maps a domain account into the wire shape.
func NewAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:           account.ID,
		Email:        account.Email,
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		AuthProvider: string(account.AuthProvider),
		IsSubscribed: account.IsSubscribed,
		IsVip:        account.IsVip,
		Verified:     account.Verified,
	}
}
