package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/stocklane-erp/stocklane/internal/shared"
)

// Issuance failures indicate broken administrative setup, not a client
// mistake, and surface as internal errors.
var (
	// ErrRoleInvalid means the role named on the user does not exist or is deleted.
	ErrRoleInvalid = errors.New("auth: role invalid or deleted")
	// ErrRoleHasNoPermissions means the role resolves to an empty permission
	// set; a role that grants no capability cannot issue a working token.
	ErrRoleHasNoPermissions = errors.New("auth: role has no permissions")
)

// RoleResolver resolves a role's effective permission set by role name.
// Implemented by the rbac service.
type RoleResolver interface {
	ResolveRolePermissionsByName(ctx context.Context, roleName string) ([]string, error)
}

// Claims is the wire contract of the access token: subject carries the
// username, ID the numeric user id, Role the role name and Permissions the
// snapshot of the role's effective permission set at issuance time.
type Claims struct {
	UserID      int64    `json:"id"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// TokenConfig groups the signing parameters shared by issuer and verifier.
type TokenConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
}

func (c TokenConfig) signingMethod() (jwt.SigningMethod, error) {
	name := c.Algorithm
	if name == "" {
		name = "HS256"
	}
	method := jwt.GetSigningMethod(name)
	if method == nil {
		return nil, fmt.Errorf("auth: unknown signing algorithm %q", name)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: algorithm %q is not symmetric", name)
	}
	return method, nil
}

// Issuer mints signed, time-limited access tokens.
type Issuer struct {
	cfg      TokenConfig
	method   jwt.SigningMethod
	resolver RoleResolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewIssuer validates the signing configuration and constructs an Issuer.
func NewIssuer(cfg TokenConfig, resolver RoleResolver, logger *slog.Logger) (*Issuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: token secret required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 20 * time.Minute
	}
	method, err := cfg.signingMethod()
	if err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg, method: method, resolver: resolver, logger: logger, now: time.Now}, nil
}

// Issue resolves the role's permission set and mints a signed token carrying
// the identity snapshot. The permission list is embedded at issuance time;
// later permission changes do not alter already-issued tokens.
func (i *Issuer) Issue(ctx context.Context, username string, userID int64, roleName string) (string, time.Time, error) {
	if roleName == "" {
		return "", time.Time{}, ErrRoleInvalid
	}
	perms, err := i.resolver.ResolveRolePermissionsByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", time.Time{}, ErrRoleInvalid
		}
		return "", time.Time{}, fmt.Errorf("auth: resolve permissions for role %q: %w", roleName, err)
	}
	if len(perms) == 0 {
		return "", time.Time{}, ErrRoleHasNoPermissions
	}
	sorted := make([]string, len(perms))
	copy(sorted, perms)
	sort.Strings(sorted)

	now := i.now().UTC()
	exp := now.Add(i.cfg.TTL)
	claims := Claims{
		UserID:      userID,
		Role:        roleName,
		Permissions: sorted,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(i.method, claims).SignedString([]byte(i.cfg.Secret))
	if err != nil {
		if i.logger != nil {
			i.logger.Error("sign access token", slog.Any("error", err))
		}
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// Verifier validates access tokens and reconstructs the request identity.
type Verifier struct {
	cfg    TokenConfig
	method jwt.SigningMethod
	logger *slog.Logger
}

// NewVerifier validates the signing configuration and constructs a Verifier.
func NewVerifier(cfg TokenConfig, logger *slog.Logger) (*Verifier, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: token secret required")
	}
	method, err := cfg.signingMethod()
	if err != nil {
		return nil, err
	}
	return &Verifier{cfg: cfg, method: method, logger: logger}, nil
}

// Verify checks signature and expiry and extracts the identity. Any failure
// is wrapped in shared.ErrInvalidCredentials so callers surface a uniform
// 401; the sub-case stays in the error chain for internal logging only.
func (v *Verifier) Verify(tokenString string) (*shared.Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{v.method.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", shared.ErrInvalidCredentials)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid signature: %w", shared.ErrInvalidCredentials)
		default:
			return nil, fmt.Errorf("malformed token: %w", shared.ErrInvalidCredentials)
		}
	}
	if claims.Subject == "" || claims.UserID == 0 {
		return nil, fmt.Errorf("malformed claims: %w", shared.ErrInvalidCredentials)
	}
	return &shared.Identity{
		UserID:      claims.UserID,
		Username:    claims.Subject,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	}, nil
}
