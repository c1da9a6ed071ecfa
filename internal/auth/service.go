package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/nursat/filevault/internal/account"
	"github.com/nursat/filevault/internal/config"
)

const resetTokenLength = 32

// accountDirectory is the slice of the account service the gateway needs.
type accountDirectory interface {
	Verify(ctx context.Context, email, password string) (account.Account, error)
	LookupByEmail(ctx context.Context, email string) (account.Account, error)
	ResetPassword(ctx context.Context, id uuid.UUID, next string) error
}

// resetTokenStore abstracts reset-token persistence.
type resetTokenStore interface {
	CreateResetToken(ctx context.Context, tokenHash string, accountID uuid.UUID, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (uuid.UUID, error)
}

// Service is the session gateway: it issues and validates bearer tokens and
// drives the password-reset token flow.
type Service struct {
	accounts accountDirectory
	resets   resetTokenStore
	cfg      config.AuthConfig
	nowFunc  func() time.Time
	issuer   string
	parser   *jwt.Parser
}

// NewService creates a Service with dependencies.
func NewService(accounts accountDirectory, resets resetTokenStore, cfg config.AuthConfig) *Service {
	return &Service{
		accounts: accounts,
		resets:   resets,
		cfg:      cfg,
		nowFunc:  time.Now,
		issuer:   "filevault",
		parser:   jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	acc, err := s.accounts.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			return LoginResult{}, account.ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("verify credentials: %w", err)
	}

	token, expiresAt, err := s.issueToken(acc)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	return LoginResult{
		Account:     acc.SafeAccount(),
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// ValidateToken verifies the token signature and extracts claims.
func (s *Service) ValidateToken(tokenString string) (Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return Claims{}, ErrUnauthorized
	}

	parsed, err := s.parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.TokenSecret), nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrUnauthorized
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrUnauthorized
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return Claims{}, ErrUnauthorized
	}

	accountID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, ErrUnauthorized
	}

	email, _ := claims["email"].(string)

	expFloat, okExp := claims["exp"].(float64)
	if !okExp {
		return Claims{}, ErrUnauthorized
	}
	exp := time.Unix(int64(expFloat), 0)

	iat := time.Time{}
	if iatFloat, ok := claims["iat"].(float64); ok {
		iat = time.Unix(int64(iatFloat), 0)
	}

	if exp.Before(s.nowFunc()) {
		return Claims{}, ErrUnauthorized
	}

	return Claims{
		AccountID: accountID,
		Email:     email,
		ExpiresAt: exp,
		IssuedAt:  iat,
	}, nil
}

// RequestPasswordReset mints a single-use reset token for the account behind
// the email. The raw token is returned for out-of-band delivery; only its
// HMAC is persisted. Unknown emails return an empty token and no error, so
// the endpoint cannot be used for account enumeration.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	acc, err := s.accounts.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup account: %w", err)
	}

	raw := make([]byte, resetTokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	expiresAt := s.nowFunc().Add(s.cfg.ResetTokenTTL)
	if err := s.resets.CreateResetToken(ctx, hashResetToken(token, s.cfg.ResetTokenSecret), acc.ID, expiresAt); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	return token, nil
}

// ResetPassword consumes a reset token and installs the new credential.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if strings.TrimSpace(rawToken) == "" {
		return ErrResetTokenInvalid
	}

	accountID, err := s.resets.ConsumeResetToken(ctx, hashResetToken(rawToken, s.cfg.ResetTokenSecret), s.nowFunc())
	if err != nil {
		return err
	}

	if err := s.accounts.ResetPassword(ctx, accountID, newPassword); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func (s *Service) issueToken(acc account.Account) (string, time.Time, error) {
	now := s.nowFunc()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := jwt.MapClaims{
		"sub":   acc.ID.String(),
		"iss":   s.issuer,
		"aud":   "filevault-api",
		"iat":   now.Unix(),
		"exp":   expiresAt.Unix(),
		"email": acc.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.TokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func hashResetToken(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
