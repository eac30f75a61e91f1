package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/account-service/internal/domain"
)

// Claims describes the self-contained JWT payload. The kind claim ties the
// signed value back to its store record type; email and scope carry the
// kind-specific payload for kinds that need it.
type Claims struct {
	Kind  domain.TokenKind `json:"kind"`
	Email string           `json:"email,omitempty"`
	Scope []string         `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Signer signs and parses the cryptographic half of a token. It knows
// nothing about the store; revocation checks live above it.
type Signer struct {
	secret []byte
}

// NewSigner builds a signer over a shared HMAC secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign produces the signed representation of the claims.
func (s *Signer) Sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates the signature and, unless ignoreExpiry is set, the
// embedded expiry, using only cryptographic material. It never consults
// storage.
func (s *Signer) Parse(signedValue string, ignoreExpiry bool) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ignoreExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(signedValue, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// NewClaims assembles claims for a token of the given kind. Expiry is
// second-granularity so the embedded exp matches the stored expires_at
// exactly.
func NewClaims(kind domain.TokenKind, id, subjectID string, issuedAt, expiresAt time.Time, extra domain.TokenExtra) *Claims {
	return &Claims{
		Kind:  kind,
		Email: extra.Email,
		Scope: extra.Scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt.Truncate(time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt.Truncate(time.Second)),
		},
	}
}
