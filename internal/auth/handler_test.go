package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stocklane-erp/stocklane/internal/auth"
	"github.com/stocklane-erp/stocklane/internal/shared"
	_ "github.com/stocklane-erp/stocklane/testing"
)

type handlerResolver struct{}

func (handlerResolver) ResolveRolePermissionsByName(ctx context.Context, roleName string) ([]string, error) {
	if roleName == "clerk" {
		return []string{"VIEW_STOCKS", "VALIDATE_ORDERS"}, nil
	}
	return nil, shared.ErrNotFound
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := auth.NewService(newStubRepo(t), logger, bcrypt.MinCost)
	issuer, err := auth.NewIssuer(auth.TokenConfig{Secret: "secret", Algorithm: "HS256", TTL: time.Minute}, handlerResolver{}, logger)
	require.NoError(t, err)
	handler := auth.NewHandler(logger, svc, issuer)

	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r
}

func postLogin(t *testing.T, router http.Handler, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestLoginReturnsBearerToken(t *testing.T) {
	router := newTestRouter(t)
	res := postLogin(t, router, "alice", "correct-horse")
	require.Equal(t, http.StatusOK, res.Code)

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)
	require.Equal(t, "bearer", body.TokenType)
}

func TestLoginFailuresShareOneResponse(t *testing.T) {
	router := newTestRouter(t)

	wrongPassword := postLogin(t, router, "alice", "wrong-password")
	unknownUser := postLogin(t, router, "nobody", "wrong-password")

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	require.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	require.Contains(t, wrongPassword.Body.String(), "could not validate credentials")
}

func TestLoginRolelessUserIsServerFault(t *testing.T) {
	// mallory is inactive; register an active user without a role instead.
	router := newTestRouter(t)

	payload := `{"username":"dave","first_name":"Dave","last_name":"Low","email":"dave@test.local","phone":"555-0101","password":"longenoughpw"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/users", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusCreated, res.Code)

	login := postLogin(t, router, "dave", "longenoughpw")
	require.Equal(t, http.StatusInternalServerError, login.Code)
}
