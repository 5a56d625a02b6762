// Package auth issues and verifies the bearer tokens that gate the
// wallet API, and keeps the revocation list fed by logout.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/brwallet/pix-wallet-go/internal/platform/clock"
)

type contextKey string

const userContextKey contextKey = "user"

// User is the authenticated principal carried on request contexts.
type User struct {
	ID    string
	Email string
}

func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userContextKey).(User)
	return u, ok
}

// Token is a verified access token. TokenID keys the revocation list so
// logging out one session never invalidates another.
type Token struct {
	User      User
	TokenID   string
	ExpiresAt time.Time
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	clk    clock.Clock
}

func NewSigner(secret string, ttl time.Duration, clk clock.Clock) *Signer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Signer{secret: []byte(secret), ttl: ttl, clk: clk}
}

// Sign mints an HS256 token for the user and reports its lifetime.
func (s *Signer) Sign(u User) (signed string, issuedAt, expiresAt time.Time, err error) {
	issuedAt = s.clk.Now().UTC()
	expiresAt = issuedAt.Add(s.ttl)
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"jti":   uuid.NewString(),
		"iat":   issuedAt.Unix(),
		"exp":   expiresAt.Unix(),
	}
	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	return signed, issuedAt, expiresAt, nil
}

// Parse verifies signature, method and expiry and extracts the token
// identity. Revocation is the caller's concern.
func (s *Signer) Parse(tokenString string) (Token, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithTimeFunc(func() time.Time { return s.clk.Now().UTC() }),
	)
	if err != nil || !tok.Valid {
		return Token{}, errors.New("invalid token")
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" || jti == "" {
		return Token{}, errors.New("missing token claims")
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return Token{}, errors.New("missing expiry claim")
	}
	return Token{
		User:      User{ID: sub, Email: email},
		TokenID:   jti,
		ExpiresAt: exp.Time.UTC(),
	}, nil
}
