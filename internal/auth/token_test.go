package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/stocklane-erp/stocklane/internal/shared"
	_ "github.com/stocklane-erp/stocklane/testing"
)

type stubResolver struct {
	perms map[string][]string
}

func (s *stubResolver) ResolveRolePermissionsByName(ctx context.Context, roleName string) ([]string, error) {
	perms, ok := s.perms[roleName]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return perms, nil
}

func testConfig() TokenConfig {
	return TokenConfig{Secret: "test-secret", Algorithm: "HS256", TTL: 20 * time.Minute}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	resolver := &stubResolver{perms: map[string][]string{
		"clerk": {"VIEW_STOCKS", "VALIDATE_ORDERS"},
	}}
	issuer, err := NewIssuer(testConfig(), resolver, nil)
	require.NoError(t, err)
	verifier, err := NewVerifier(testConfig(), nil)
	require.NoError(t, err)

	token, exp, err := issuer.Issue(context.Background(), "alice", 7, "clerk")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.True(t, exp.After(time.Now()))

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(7), identity.UserID)
	require.Equal(t, "alice", identity.Username)
	require.Equal(t, "clerk", identity.Role)
	require.ElementsMatch(t, []string{"VALIDATE_ORDERS", "VIEW_STOCKS"}, identity.Permissions)
}

func TestIssueSnapshotsPermissions(t *testing.T) {
	resolver := &stubResolver{perms: map[string][]string{
		"clerk": {"VIEW_STOCKS"},
	}}
	issuer, err := NewIssuer(testConfig(), resolver, nil)
	require.NoError(t, err)
	verifier, err := NewVerifier(testConfig(), nil)
	require.NoError(t, err)

	token, _, err := issuer.Issue(context.Background(), "alice", 7, "clerk")
	require.NoError(t, err)

	// A later permission change must not alter an already-issued token.
	resolver.perms["clerk"] = []string{"VIEW_STOCKS", "EDIT_USERS"}

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, []string{"VIEW_STOCKS"}, identity.Permissions)
}

func TestIssueRefusesUnknownRole(t *testing.T) {
	issuer, err := NewIssuer(testConfig(), &stubResolver{perms: map[string][]string{}}, nil)
	require.NoError(t, err)

	_, _, err = issuer.Issue(context.Background(), "alice", 7, "ghost")
	require.ErrorIs(t, err, ErrRoleInvalid)
}

func TestIssueRefusesEmptyPermissionSet(t *testing.T) {
	resolver := &stubResolver{perms: map[string][]string{"intern": {}}}
	issuer, err := NewIssuer(testConfig(), resolver, nil)
	require.NoError(t, err)

	token, _, err := issuer.Issue(context.Background(), "bob", 3, "intern")
	require.ErrorIs(t, err, ErrRoleHasNoPermissions)
	require.Empty(t, token)
}

func TestIssueRefusesRolelessUser(t *testing.T) {
	issuer, err := NewIssuer(testConfig(), &stubResolver{perms: map[string][]string{}}, nil)
	require.NoError(t, err)

	_, _, err = issuer.Issue(context.Background(), "bob", 3, "")
	require.ErrorIs(t, err, ErrRoleInvalid)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	resolver := &stubResolver{perms: map[string][]string{"clerk": {"VIEW_STOCKS"}}}
	issuer, err := NewIssuer(testConfig(), resolver, nil)
	require.NoError(t, err)
	// Freeze issuance far enough in the past that exp is already reached.
	issuer.now = func() time.Time { return time.Now().Add(-21 * time.Minute) }

	token, _, err := issuer.Issue(context.Background(), "alice", 7, "clerk")
	require.NoError(t, err)

	verifier, err := NewVerifier(testConfig(), nil)
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	resolver := &stubResolver{perms: map[string][]string{"clerk": {"VIEW_STOCKS"}}}
	issuer, err := NewIssuer(testConfig(), resolver, nil)
	require.NoError(t, err)

	token, _, err := issuer.Issue(context.Background(), "alice", 7, "clerk")
	require.NoError(t, err)

	other := testConfig()
	other.Secret = "some-other-secret"
	verifier, err := NewVerifier(other, nil)
	require.NoError(t, err)
	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestVerifyRejectsMissingSubjectOrID(t *testing.T) {
	cfg := testConfig()
	verifier, err := NewVerifier(cfg, nil)
	require.NoError(t, err)

	// Well-signed token without sub and id claims.
	claims := jwt.MapClaims{
		"role":        "clerk",
		"permissions": []string{"VIEW_STOCKS"},
		"exp":         time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	cfg := testConfig()
	verifier, err := NewVerifier(cfg, nil)
	require.NoError(t, err)

	// Well-signed token that simply omits exp; it must not verify forever.
	claims := jwt.MapClaims{
		"sub":         "alice",
		"id":          int64(7),
		"role":        "clerk",
		"permissions": []string{"VIEW_STOCKS"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	verifier, err := NewVerifier(testConfig(), nil)
	require.NoError(t, err)
	_, err = verifier.Verify("not-a-token")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestNewIssuerRejectsAsymmetricAlgorithm(t *testing.T) {
	cfg := testConfig()
	cfg.Algorithm = "RS256"
	_, err := NewIssuer(cfg, &stubResolver{}, nil)
	require.Error(t, err)
}
