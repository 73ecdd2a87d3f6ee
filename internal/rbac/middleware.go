package rbac

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/estateops/estateops/internal/shared"
)

type evaluationContextKey struct{}

type internalCallerContextKey struct{}

type bypassContextKey struct{}

// ContextWithEvaluation marks the context as currently evaluating a
// permission. The marker lives in the context rather than any shared cell,
// so concurrent requests can never observe each other's guard and the flag
// vanishes with the context on every exit path.
func ContextWithEvaluation(ctx context.Context) context.Context {
	return context.WithValue(ctx, evaluationContextKey{}, true)
}

// EvaluationInProgress reports whether a permission evaluation is already
// running on this logical request.
func EvaluationInProgress(ctx context.Context) bool {
	active, _ := ctx.Value(evaluationContextKey{}).(bool)
	return active
}

// ContextWithInternalCaller tags the context as originating from an internal
// collaborator (the engine's own store lookups, seeding, background jobs).
// Checks encountering the tag are skipped so the engine's data access can
// never re-trigger authorization. This replaces detection by type-name
// heuristics with an explicit capability marker.
func ContextWithInternalCaller(ctx context.Context) context.Context {
	return context.WithValue(ctx, internalCallerContextKey{}, true)
}

// IsInternalCaller reports whether the context carries the internal tag.
func IsInternalCaller(ctx context.Context) bool {
	internal, _ := ctx.Value(internalCallerContextKey{}).(bool)
	return internal
}

func contextWithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassContextKey{}, true)
}

func bypassRequested(ctx context.Context) bool {
	bypass, _ := ctx.Value(bypassContextKey{}).(bool)
	return bypass
}

// Middleware wires permission checks into the HTTP pipeline. Each check runs
// the sequence reentrancy guard, internal bypass, identity extraction,
// cached evaluation; evaluation errors are logged and treated as deny, never
// propagated.
type Middleware struct {
	Checker PermissionChecker
	Logger  *slog.Logger
}

// Require authorizes the request against a single permission policy.
func (m Middleware) Require(policy PermissionPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// A nested check defers entirely rather than deciding, which
			// breaks evaluation cycles. Same for tagged internal callers and
			// routes wrapped in Bypass.
			if EvaluationInProgress(ctx) || IsInternalCaller(ctx) || bypassRequested(ctx) {
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := m.currentUserID(r)
			if !ok {
				m.deny(w)
				return
			}

			granted, err := m.Checker.HasPermission(ContextWithEvaluation(ctx), userID, policy.Permission())
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorization evaluation failed",
						slog.String("permission", policy.Permission()),
						slog.String("user_id", userID),
						slog.Any("error", err))
				}
				m.deny(w)
				return
			}
			if !granted {
				m.deny(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireNamed resolves a policy name in the "Permission:" convention and
// authorizes against it. Unknown conventions defer to the next handler in
// the chain; this is the framework-boundary entry point.
func (m Middleware) RequireNamed(policyName string) func(http.Handler) http.Handler {
	policy, ok := ParsePolicy(policyName)
	if !ok {
		return func(next http.Handler) http.Handler { return next }
	}
	return m.Require(policy)
}

// RequireAny ensures the current user has at least one of the required
// permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.requireSet(normalized, hasAnyPermission)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.requireSet(normalized, hasAllPermissions)
}

func (m Middleware) requireSet(required []string, satisfied func(granted, required []string) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if len(required) == 0 || EvaluationInProgress(ctx) || IsInternalCaller(ctx) || bypassRequested(ctx) {
				next.ServeHTTP(w, r)
				return
			}
			userID, ok := m.currentUserID(r)
			if !ok {
				m.deny(w)
				return
			}
			granted, err := m.Checker.ListPermissions(ContextWithEvaluation(ctx), userID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authorization evaluation failed",
						slog.String("user_id", userID),
						slog.Any("error", err))
				}
				m.deny(w)
				return
			}
			if satisfied(granted, required) {
				next.ServeHTTP(w, r)
				return
			}
			m.deny(w)
		})
	}
}

// Bypass short-circuits every permission check for the wrapped routes. It
// defeats authorization unconditionally and is intended only for
// system-internal endpoints such as health checks.
func Bypass() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(contextWithBypass(r.Context())))
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func (m Middleware) currentUserID(r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", false
	}
	userID := strings.TrimSpace(sess.User())
	if userID == "" {
		return "", false
	}
	return userID, true
}

// Permission system names are case-sensitive, here as in the store.
func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
