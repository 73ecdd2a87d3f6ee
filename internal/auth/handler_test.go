package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/estateops/estateops/internal/auth"
	"github.com/estateops/estateops/internal/shared"
	_ "github.com/estateops/estateops/testing"
)

type stubRepo struct {
	user *auth.User
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	return nil
}

type stubChecker struct {
	permissions []string
}

func (s stubChecker) HasPermission(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s stubChecker) ListPermissions(context.Context, string) ([]string, error) {
	return s.permissions, nil
}

type stubRoles struct {
	names []string
}

func (s stubRoles) ActiveRoleNames(context.Context, string) ([]string, error) {
	return s.names, nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthRouter(t *testing.T, repo auth.Repository) (chi.Router, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	service := auth.NewService(repo, stubChecker{permissions: []string{"properties.view"}}, stubRoles{names: []string{"Manager"}})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, service, sessionManager, csrfManager)
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, sessionManager
}

func postLogin(t *testing.T, router http.Handler, sessionManager *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessionManager.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec, sess
}

func TestLoginSuccessHydratesClaims(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           "user-1",
		Email:        "admin@example.com",
		PasswordHash: hashed(t, "super-secret"),
		IsActive:     true,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	rec, sess := postLogin(t, router, sessionManager,
		`{"email":"admin@example.com","password":"super-secret"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "user-1", sess.User())
	require.Equal(t, []string{"properties.view"}, sess.Permissions())
	require.Equal(t, []string{"Manager"}, sess.Roles())

	var envelope struct {
		Success bool `json:"success"`
		Data    struct {
			UserID      string   `json:"user_id"`
			Permissions []string `json:"permissions"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.Equal(t, "user-1", envelope.Data.UserID)
	require.Equal(t, []string{"properties.view"}, envelope.Data.Permissions)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           "user-1",
		Email:        "admin@example.com",
		PasswordHash: hashed(t, "super-secret"),
		IsActive:     true,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	rec, sess := postLogin(t, router, sessionManager,
		`{"email":"admin@example.com","password":"wrong-password"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, sess.User())
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           "user-1",
		Email:        "admin@example.com",
		PasswordHash: hashed(t, "super-secret"),
		IsActive:     false,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	rec, _ := postLogin(t, router, sessionManager,
		`{"email":"admin@example.com","password":"super-secret"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	router, sessionManager := newAuthRouter(t, &stubRepo{})

	rec, _ := postLogin(t, router, sessionManager,
		`{"email":"nobody@example.com","password":"super-secret"}`)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: &auth.User{
		ID:           "user-1",
		Email:        "admin@example.com",
		PasswordHash: hashed(t, "super-secret"),
		IsActive:     true,
	}}
	router, sessionManager := newAuthRouter(t, repo)

	_, sess := postLogin(t, router, sessionManager,
		`{"email":"admin@example.com","password":"super-secret"}`)
	require.Equal(t, "user-1", sess.User())

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
