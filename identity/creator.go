// Package identity issues and verifies the signed cookie token that gates the
// dashboard behind the OAuth sign-in.
package identity

import (
	"fmt"
	"time"

	"github.com/BharatiPatra/fi-dashboard/internal/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Identity is the signed-in dashboard user as reported by the OAuth provider.
type Identity struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	TokenID   string    `json:"jti,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Creator issues and parses identity tokens.
type Creator struct {
	signer Signer
	expiry time.Duration
}

func NewCreator(signer Signer, expiry time.Duration) *Creator {
	return &Creator{signer: signer, expiry: expiry}
}

// Issue signs a token for id. Subject is required; issue and expiry times
// are set from NowTimeFunc.
func (c *Creator) Issue(id Identity) (string, error) {
	if id.Subject == "" {
		return "", fmt.Errorf("identity subject is required")
	}

	now := NowTimeFunc()
	claims := jwt.MapClaims{
		"sub": id.Subject,
		"iat": now.Unix(),
		"exp": now.Add(c.expiry).Unix(),
		"jti": uuid.New().String(),
	}
	if id.Email != "" {
		claims["email"] = id.Email
	}
	if id.Name != "" {
		claims["name"] = id.Name
	}

	return c.signer.Sign(claims)
}

// Parse verifies raw and returns its identity. Tokens with a bad signature,
// another algorithm or no subject are ErrInvalidToken; expired tokens are
// ErrTokenExpired.
func (c *Creator) Parse(raw string) (Identity, error) {
	token, err := jwt.Parse(raw, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(NowTimeFunc),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, errors.ErrTokenExpired
		}
		return Identity{}, errors.Wrapf(errors.ErrInvalidToken, "%v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, errors.ErrInvalidToken
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return Identity{}, errors.Wrapf(errors.ErrInvalidToken, "missing subject")
	}

	id := Identity{Subject: sub}
	id.Email, _ = claims["email"].(string)
	id.Name, _ = claims["name"].(string)
	id.TokenID, _ = claims["jti"].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}
