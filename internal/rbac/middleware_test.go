package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/estateops/estateops/internal/shared"
)

type stubChecker struct {
	hasPermission   func(ctx context.Context, userID, systemName string) (bool, error)
	listPermissions func(ctx context.Context, userID string) ([]string, error)
}

func (s stubChecker) HasPermission(ctx context.Context, userID, systemName string) (bool, error) {
	return s.hasPermission(ctx, userID, systemName)
}

func (s stubChecker) ListPermissions(ctx context.Context, userID string) ([]string, error) {
	return s.listPermissions(ctx, userID)
}

func grantAll() stubChecker {
	return stubChecker{
		hasPermission:   func(context.Context, string, string) (bool, error) { return true, nil },
		listPermissions: func(context.Context, string) ([]string, error) { return []string{"properties.view"}, nil },
	}
}

func denyAll() stubChecker {
	return stubChecker{
		hasPermission:   func(context.Context, string, string) (bool, error) { return false, nil },
		listPermissions: func(context.Context, string) ([]string, error) { return nil, nil },
	}
}

func requestWithUser(t *testing.T, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/properties", nil)
	sess := &shared.Session{}
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireGrantsMatchingUser(t *testing.T) {
	m := Middleware{Checker: grantAll()}
	var called bool
	handler := m.Require(MustPolicy("properties.view"))(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireDeniesWithoutIdentity(t *testing.T) {
	m := Middleware{Checker: grantAll()}
	var called bool
	handler := m.Require(MustPolicy("properties.view"))(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties", nil))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireDeniesMissingPermission(t *testing.T) {
	m := Middleware{Checker: denyAll()}
	var called bool
	handler := m.Require(MustPolicy("properties.view"))(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireDeniesOnEvaluationError(t *testing.T) {
	m := Middleware{Checker: stubChecker{
		hasPermission: func(context.Context, string, string) (bool, error) {
			return true, context.DeadlineExceeded
		},
	}}
	var called bool
	handler := m.Require(MustPolicy("properties.view"))(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireDefersDuringEvaluation(t *testing.T) {
	// A check already in flight must not recurse into another decision.
	m := Middleware{Checker: denyAll()}
	var called bool
	handler := m.Require(MustPolicy("properties.view"))(okHandler(&called))

	req := requestWithUser(t, "user-1")
	req = req.WithContext(ContextWithEvaluation(req.Context()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.True(t, called)
}

func TestRequireSkipsInternalCallers(t *testing.T) {
	m := Middleware{Checker: denyAll()}
	var called bool
	handler := m.Require(MustPolicy("properties.view"))(okHandler(&called))

	req := httptest.NewRequest(http.MethodGet, "/properties", nil)
	req = req.WithContext(ContextWithInternalCaller(req.Context()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.True(t, called)
}

func TestBypassDefeatsChecks(t *testing.T) {
	m := Middleware{Checker: denyAll()}
	var called bool
	handler := Bypass()(m.Require(MustPolicy("properties.view"))(okHandler(&called)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.True(t, called)
}

func TestRequireMarksEvaluationContext(t *testing.T) {
	var sawGuard bool
	m := Middleware{Checker: stubChecker{
		hasPermission: func(ctx context.Context, _, _ string) (bool, error) {
			sawGuard = EvaluationInProgress(ctx)
			return true, nil
		},
	}}
	var called bool
	handler := m.Require(MustPolicy("properties.view"))(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.True(t, sawGuard)
	require.True(t, called)
}

func TestRequireNamedOutsideConventionIsTransparent(t *testing.T) {
	m := Middleware{Checker: denyAll()}
	var called bool
	handler := m.RequireNamed("AdminOnly")(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties", nil))
	require.True(t, called)
}

func TestRequireNamedPermissionConvention(t *testing.T) {
	m := Middleware{Checker: denyAll()}
	var called bool
	handler := m.RequireNamed("Permission:properties.view")(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAny(t *testing.T) {
	m := Middleware{Checker: stubChecker{
		listPermissions: func(context.Context, string) ([]string, error) {
			return []string{"properties.view"}, nil
		},
	}}

	var called bool
	handler := m.RequireAny("properties.edit", "properties.view")(okHandler(&called))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.True(t, called)

	called = false
	handler = m.RequireAny("payments.approve")(okHandler(&called))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMiddlewareWiredFromServiceChecker(t *testing.T) {
	// Service.Checker() is the handle the entrypoint hands to the
	// middleware; exercise that wiring end to end against a real store.
	svc, store := newTestService(t)
	perm := seedPermission(t, store, "properties.view", true)
	role := seedRole(t, store, "Viewer", true)
	require.NoError(t, store.AttachPermission(context.Background(), role.ID, perm.ID))
	seedAssignment(t, store, "user-1", role.ID, nil)

	m := Middleware{Checker: svc.Checker()}
	var called bool
	handler := m.Require(MustPolicy("properties.view"))(okHandler(&called))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)

	called = false
	handler = m.RequireAll("properties.view", "properties.edit")(okHandler(&called))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireSetMatchesCaseSensitively(t *testing.T) {
	// System names are case-sensitive in the store, so a differently-cased
	// requirement must not match a granted name.
	m := Middleware{Checker: stubChecker{
		listPermissions: func(context.Context, string) ([]string, error) {
			return []string{"properties.view"}, nil
		},
	}}

	var called bool
	handler := m.RequireAny("Properties.View")(okHandler(&called))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)

	called = false
	handler = m.RequireAll("PROPERTIES.VIEW")(okHandler(&called))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAll(t *testing.T) {
	m := Middleware{Checker: stubChecker{
		listPermissions: func(context.Context, string) ([]string, error) {
			return []string{"properties.view", "properties.edit"}, nil
		},
	}}

	var called bool
	handler := m.RequireAll("properties.view", "properties.edit")(okHandler(&called))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.True(t, called)

	called = false
	handler = m.RequireAll("properties.view", "payments.approve")(okHandler(&called))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(t, "user-1"))
	require.False(t, called)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
