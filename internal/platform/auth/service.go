package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/brwallet/pix-wallet-go/internal/platform/audit"
	"github.com/brwallet/pix-wallet-go/internal/platform/clock"
	"github.com/brwallet/pix-wallet-go/internal/platform/wallet"
)

// Credential is a login identity known to the service.
type Credential struct {
	UserID       string
	Email        string
	PasswordHash string // bcrypt
}

// TokenResponse is the login payload returned to the client.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service authenticates credentials and manages token revocation.
// Repeated failures lock the email out for a cooldown window.
type Service struct {
	signer    *Signer
	blacklist Blacklist
	trail     *audit.Trail
	clk       clock.Clock

	mu             sync.Mutex
	credentials    map[string]Credential // keyed by lowercase email
	failedAttempts map[string]int
	lockedUntil    map[string]time.Time
	maxFailures    int
	lockoutTTL     time.Duration
}

type ServiceOption func(*Service)

func WithLockoutPolicy(maxFailures int, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if maxFailures > 0 {
			s.maxFailures = maxFailures
		}
		if ttl > 0 {
			s.lockoutTTL = ttl
		}
	}
}

func WithTrail(trail *audit.Trail) ServiceOption {
	return func(s *Service) { s.trail = trail }
}

func NewService(signer *Signer, blacklist Blacklist, creds []Credential, clk clock.Clock, opts ...ServiceOption) *Service {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if blacklist == nil {
		blacklist = NewMemoryBlacklist(clk)
	}
	s := &Service{
		signer:         signer,
		blacklist:      blacklist,
		trail:          audit.NewTrail(),
		clk:            clk,
		credentials:    make(map[string]Credential, len(creds)),
		failedAttempts: make(map[string]int),
		lockedUntil:    make(map[string]time.Time),
		maxFailures:    5,
		lockoutTTL:     15 * time.Minute,
	}
	for _, c := range creds {
		s.credentials[strings.ToLower(c.Email)] = c
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) audit(email, action string, outcome audit.Outcome, reason string) {
	_, _ = s.trail.Append(audit.Event{
		RecordedAt: s.clk.Now().UTC(),
		Actor:      email,
		Entity:     "session",
		EntityID:   email,
		Action:     action,
		Before:     []byte(`{}`),
		After:      []byte(`{}`),
		Outcome:    outcome,
		Reason:     reason,
	})
}

// Login validates the credential pair and mints an access token.
func (s *Service) Login(_ context.Context, email, password string) (TokenResponse, error) {
	missing := make([]string, 0, 2)
	if strings.TrimSpace(email) == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return TokenResponse{}, wallet.E(wallet.CodeLoginValidationError, map[string]any{"missing_fields": missing})
	}

	key := strings.ToLower(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now().UTC()
	if until, ok := s.lockedUntil[key]; ok && until.After(now) {
		s.audit(key, "login", audit.OutcomeDenied, "account locked")
		return TokenResponse{}, wallet.E(wallet.CodeLoginUnauthorized, map[string]any{
			"locked_until": until.Format(time.RFC3339),
		})
	}

	cred, ok := s.credentials[key]
	if !ok || bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		s.failedAttempts[key]++
		if s.failedAttempts[key] >= s.maxFailures {
			s.lockedUntil[key] = now.Add(s.lockoutTTL)
		}
		s.audit(key, "login", audit.OutcomeDenied, "invalid credentials")
		return TokenResponse{}, wallet.E(wallet.CodeLoginUnauthorized, nil)
	}
	delete(s.failedAttempts, key)
	delete(s.lockedUntil, key)

	signed, issuedAt, expiresAt, err := s.signer.Sign(User{ID: cred.UserID, Email: cred.Email})
	if err != nil {
		return TokenResponse{}, wallet.Wrap(wallet.CodeInternalError, err)
	}
	s.audit(key, "login", audit.OutcomeSuccess, "")
	return TokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		CreatedAt:   issuedAt,
		ExpiresAt:   expiresAt,
	}, nil
}

// Logout revokes the presented token until its natural expiry. A token
// that no longer verifies is reported as TOKEN_VALIDATION_ERROR.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	if strings.TrimSpace(tokenString) == "" {
		return wallet.E(wallet.CodeTokenNotProvided, nil)
	}
	tok, err := s.signer.Parse(tokenString)
	if err != nil {
		return wallet.Wrap(wallet.CodeTokenValidationError, err)
	}
	if err := s.blacklist.Revoke(ctx, tok.TokenID, tok.ExpiresAt); err != nil {
		return wallet.Wrap(wallet.CodeInternalError, err)
	}
	s.audit(tok.User.Email, "logout", audit.OutcomeSuccess, "")
	return nil
}

// Authenticate verifies a bearer token and checks the revocation list.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (User, error) {
	tok, err := s.signer.Parse(tokenString)
	if err != nil {
		return User{}, wallet.Wrap(wallet.CodeTokenValidationError, err)
	}
	revoked, err := s.blacklist.Revoked(ctx, tok.TokenID)
	if err != nil {
		return User{}, wallet.Wrap(wallet.CodeInternalError, err)
	}
	if revoked {
		return User{}, wallet.E(wallet.CodeTokenValidationError, map[string]any{"reason": "token revoked"})
	}
	return tok.User, nil
}
