// Package auth turns bearer credentials into requesters: HS256 JWTs issued
// by the wiki for users, and a bcrypt-hashed API key for the wiki itself.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driven"
)

// Ensure Validator implements TokenValidator
var _ driven.TokenValidator = (*Validator)(nil)

// ServiceUser is the requester an API key authenticates as.
const ServiceUser = "sercha-wiki.service"

// jwtClaims carries the wiki user and the groups view rights are granted to
type jwtClaims struct {
	Groups []string `json:"groups,omitempty"`
	Admin  bool     `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Config configures token validation.
type Config struct {
	// Secret is the HMAC key shared with the wiki
	Secret string
	// Issuer, when set, must match the token's iss claim
	Issuer string
	// Leeway tolerates clock skew on exp/nbf
	Leeway time.Duration
	// APIKeyHash is the bcrypt hash of the service API key; empty disables it
	APIKeyHash string
}

// Validator validates JWTs and the service API key
type Validator struct {
	secret     []byte
	parser     *jwt.Parser
	apiKeyHash []byte
}

// NewValidator creates a validator. The secret is required.
func NewValidator(cfg Config) (*Validator, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: jwt secret is required", domain.ErrInvalidInput)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	v := &Validator{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}
	if cfg.APIKeyHash != "" {
		v.apiKeyHash = []byte(cfg.APIKeyHash)
	}
	return v, nil
}

// Validate returns the requester a token identifies.
func (v *Validator) Validate(ctx context.Context, token string) (*domain.Requester, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrTokenInvalid
	}
	if strings.Count(token, ".") != 2 {
		return v.validateAPIKey(token)
	}

	parsed, err := v.parser.ParseWithClaims(token, &jwtClaims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrTokenInvalid)
	}
	return &domain.Requester{
		UserID: claims.Subject,
		Groups: claims.Groups,
		Admin:  claims.Admin,
	}, nil
}

func (v *Validator) validateAPIKey(key string) (*domain.Requester, error) {
	if len(v.apiKeyHash) == 0 {
		return nil, domain.ErrTokenInvalid
	}
	if err := bcrypt.CompareHashAndPassword(v.apiKeyHash, []byte(key)); err != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &domain.Requester{UserID: ServiceUser, Admin: true}, nil
}

// IssueToken signs a token for requester valid for ttl. The wiki normally
// issues tokens; this is used by the CLI and tests.
func IssueToken(secret, issuer string, requester *domain.Requester, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		Groups: requester.Groups,
		Admin:  requester.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   requester.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// HashAPIKey returns the bcrypt hash to put in the configuration for key.
func HashAPIKey(key string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
